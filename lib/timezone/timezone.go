package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Denver")
	if err != nil {
		panic(err)
	}
}

// force timezone to be the resort's civil timezone because our servers
// may end up in any region, and the operating-hours gate works off
// <time.Time>.Hour() at the mountain, not wherever the process runs
func Now() time.Time {
	return time.Now().In(Location)
}
