package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// the report as a four-column table, the shape the source used first
const tableShape = `
<html><body>
<table id="liftReport">
	<tbody>
		<tr class="liftRow">
			<td class="col-number">1</td>
			<td class="col-name"><span>Lookout</span></td>
			<td class="col-status"><img src="/img/status/icon-open.svg"></td>
			<td class="col-hours">8:30a - 3:45p</td>
		</tr>
		<tr class="liftRow">
			<td class="col-number">2</td>
			<td class="col-name"><span>Cloudspin</span></td>
			<td class="col-status"><img src="/img/status/icon-hold.svg"></td>
			<td class="col-hours">9:00a - 3:30p</td>
		</tr>
	</tbody>
</table>
</body></html>`

// the same lifts after the redesign: two-cell rows, classes renamed
const listShape = `
<html><body>
<div class="liftStatusModule">
	<div class="liftStatusRow">
		<div class="liftTitleCell">Lookout</div>
		<div class="liftIconCell"><img src="https://cdn.example.com/i/icon-open.svg"></div>
	</div>
	<div class="liftStatusRow">
		<div class="liftTitleCell">
			Cloudspin
		</div>
		<div class="liftIconCell"><img src="https://cdn.example.com/i/icon-hold.svg"></div>
	</div>
</div>
</body></html>`

func tableRules(t *testing.T) *Rules {
	rules, err := NewRules(RuleSet{
		Rows:   "tr.liftRow",
		Name:   Rule{Path: "td.col-name"},
		Status: Rule{Path: "td.col-status img", Attr: "src", Pattern: `icon-([a-z]+)\.svg`},
	})
	require.NoError(t, err)
	return rules
}

func listSniff(t *testing.T) *Sniff {
	sniff, err := NewSniff(SniffConfig{Rows: "div.liftStatusRow"})
	require.NoError(t, err)
	return sniff
}

func parse(t *testing.T, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestShapeTolerance(t *testing.T) {
	expected := StatusMap{
		"Lookout":   "open",
		"Cloudspin": "hold",
	}

	fromTable := tableRules(t).Extract(parse(t, tableShape))
	fromList := listSniff(t).Extract(parse(t, listShape))

	require.Empty(t, cmp.Diff(expected, fromTable))
	require.Empty(t, cmp.Diff(expected, fromList))
	require.Empty(t, cmp.Diff(fromTable, fromList))
}

func TestPartialRowTolerance(t *testing.T) {
	// the third row's icon is a spacer gif the pattern can't match;
	// that row disappears, the well-formed ones stay
	markup := strings.Replace(tableShape, "</tbody>", `
		<tr class="liftRow">
			<td class="col-number">3</td>
			<td class="col-name"><span>Eagle Flyer</span></td>
			<td class="col-status"><img src="/img/spacer.gif"></td>
			<td class="col-hours"></td>
		</tr>
	</tbody>`, 1)

	got := tableRules(t).Extract(parse(t, markup))
	require.Equal(t, StatusMap{
		"Lookout":   "open",
		"Cloudspin": "hold",
	}, got)
}

func TestMissingFieldDropsRow(t *testing.T) {
	markup := `
	<table><tbody>
		<tr class="liftRow">
			<td class="col-name"><span>Lookout</span></td>
		</tr>
		<tr class="liftRow">
			<td class="col-name"><span>Cloudspin</span></td>
			<td class="col-status"><img src="/i/icon-closed.svg"></td>
		</tr>
	</tbody></table>`

	got := tableRules(t).Extract(parse(t, markup))
	require.Equal(t, StatusMap{"Cloudspin": "closed"}, got)
}

func TestEmptyDocumentIsEmptyMap(t *testing.T) {
	got := tableRules(t).Extract(parse(t, "<html><body><p>nothing here</p></body></html>"))
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestSniffTextFallback(t *testing.T) {
	markup := `
	<div class="liftStatusRow">
		<div class="liftTitleCell">Lookout</div>
		<div class="liftStatusCell">Scheduled</div>
	</div>`

	got := listSniff(t).Extract(parse(t, markup))
	require.Equal(t, StatusMap{"Lookout": "scheduled"}, got)
}

func TestFirstTakesFirstNonEmpty(t *testing.T) {
	doc := parse(t, listShape)

	// the table rules find nothing in the redesigned markup, so the
	// sniffing strategy answers without any version flag
	got := First(doc, tableRules(t), listSniff(t))
	require.Equal(t, StatusMap{
		"Lookout":   "open",
		"Cloudspin": "hold",
	}, got)

	require.Empty(t, First(parse(t, "<html></html>"), tableRules(t), listSniff(t)))
}
