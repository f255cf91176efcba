package retrieve

import (
	"context"
	"fmt"
	"time"

	"liftwatch/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"
)

type DirectOptions struct {
	// UserAgent overrides the randomly chosen desktop browser identity.
	UserAgent string
	// Timeout bounds the whole request. Default: 30s.
	Timeout time.Duration
}

// Direct fetches the page with a single GET dressed up as a desktop
// browser: realistic user-agent, standard accept/language/cache
// headers, and the cloudflare bypass round tripper. This passes the
// simple fingerprint checks but not the interactive challenge.
type Direct struct {
	http *resty.Client
}

func NewDirect(opts DirectOptions) *Direct {
	ua := opts.UserAgent
	if ua == "" {
		ua = browser.Chrome()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(
		client.GetClient().Transport,
		cloudflarebp.Options{
			AddMissingHeaders: true,
			Headers: map[string]string{
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
				"Accept-Language": "en-US,en;q=0.9",
				"User-Agent":      ua,
			},
		},
	)
	client.SetHeader("user-agent", ua)
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	client.SetHeader("cache-control", "no-cache")
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "liftwatch/retrieve/http")

	return &Direct{http: client}
}

func (d *Direct) Name() string {
	return "direct"
}

func (d *Direct) Fetch(ctx context.Context, url string) (Outcome, error) {
	res, err := d.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return Outcome{}, err
	}
	// a non-2xx response is the source declining to talk to us, not a
	// transport problem; both collapse to NoData at this layer
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return Outcome{}, fmt.Errorf("unexpected status %d", res.StatusCode())
	}
	return Outcome{HTML: string(res.Body())}, nil
}
