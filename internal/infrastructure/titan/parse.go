package titan

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchodds/internal/domain/match"
)

var (
	matchTimeRegex  = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}`)
	scorePairRegex  = regexp.MustCompile(`(\d+)-(\d+)`)
	halfScoreRegex  = regexp.MustCompile(`(.+?)\((.+?)\)`)
	leadingIntRegex = regexp.MustCompile(`^\d+`)
)

const (
	europeOddsMinCells = 13
	asiaOddsMinCells   = 8
	summaryRowMinCells = 7
	historyMinCells    = 15
)

func newDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, crerr.Wrap(err, "parse html")
	}
	return doc, nil
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}

func isHidden(s *goquery.Selection) bool {
	style, ok := s.Attr("style")
	if !ok {
		return false
	}
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(style, "display:none")
}

// parseMatchIDs reads the ids of the listing rows in page order.
func parseMatchIDs(html string) ([]string, error) {
	doc, err := newDocument(html)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, 64)
	doc.Find(`tr[id^="tr1_"]`).Each(func(_ int, row *goquery.Selection) {
		id := strings.TrimSpace(strings.TrimPrefix(row.AttrOr("id", ""), "tr1_"))
		if id != "" {
			ids = append(ids, id)
		}
	})
	return ids, nil
}

func parseEuropeOdds(html string, names CompanyNames) ([]match.EuropeOddsQuote, error) {
	doc, err := newDocument(html)
	if err != nil {
		return nil, err
	}

	out := make([]match.EuropeOddsQuote, 0, 32)
	doc.Find(`#oddsList_tab tr[id^="oddstr_"]`).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < europeOddsMinCells {
			return
		}
		out = append(out, match.EuropeOddsQuote{
			Company:        names.EuropeName(trimCompanyMark(cellText(cells, 1))),
			HomeOdds:       parseOdds(cellText(cells, 2)),
			DrawOdds:       parseOdds(cellText(cells, 3)),
			AwayOdds:       parseOdds(cellText(cells, 4)),
			HomeWinRate:    parseOdds(cellText(cells, 5)),
			DrawRate:       parseOdds(cellText(cells, 6)),
			AwayWinRate:    parseOdds(cellText(cells, 7)),
			ReturnRate:     parseOdds(cellText(cells, 8)),
			HomeKellyIndex: parseOdds(cellText(cells, 9)),
			DrawKellyIndex: parseOdds(cellText(cells, 10)),
			AwayKellyIndex: parseOdds(cellText(cells, 11)),
			UpdateTime:     cellText(cells, 12),
		})
	})
	return out, nil
}

func parseAsiaOdds(html string, names CompanyNames) ([]match.AsiaHandicapQuote, error) {
	doc, err := newDocument(html)
	if err != nil {
		return nil, err
	}

	rows := doc.Find("#odds > tbody > tr")
	out := make([]match.AsiaHandicapQuote, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		id := row.AttrOr("id", "")
		if id == "maxTr" || id == "minTr" || row.HasClass("thead2") || isHidden(row) {
			return
		}
		if _, multi := row.Attr("companyid"); multi {
			return
		}
		cells := row.Find("td")
		if cells.Length() < asiaOddsMinCells {
			return
		}
		out = append(out, match.AsiaHandicapQuote{
			Company:         names.AsiaName(cellText(cells, 0)),
			InitialHomeOdds: parseOdds(cellText(cells, 2)),
			InitialHandicap: FormatHandicap(handicapCell(cells.Eq(3))),
			InitialAwayOdds: parseOdds(cellText(cells, 4)),
			LiveHomeOdds:    parseOdds(cellText(cells, 5)),
			LiveHandicap:    FormatHandicap(handicapCell(cells.Eq(6))),
			LiveAwayOdds:    parseOdds(cellText(cells, 7)),
		})
	})

	if quote, ok := summaryQuote(rows.Filter("#maxTr"), "最大值"); ok {
		quote.IsMaxValue = true
		out = append(out, quote)
	}
	if quote, ok := summaryQuote(rows.Filter("#minTr"), "最小值"); ok {
		quote.IsMinValue = true
		out = append(out, quote)
	}
	return out, nil
}

func handicapCell(cell *goquery.Selection) string {
	text := strings.TrimSpace(cell.Text())
	if text != "" {
		return text
	}
	return strings.TrimSpace(cell.AttrOr("goals", ""))
}

func summaryQuote(row *goquery.Selection, company string) (match.AsiaHandicapQuote, bool) {
	if row.Length() == 0 {
		return match.AsiaHandicapQuote{}, false
	}
	visible := row.First().Find("td").FilterFunction(func(_ int, cell *goquery.Selection) bool {
		return !isHidden(cell)
	})
	if visible.Length() < summaryRowMinCells {
		return match.AsiaHandicapQuote{}, false
	}
	return match.AsiaHandicapQuote{
		Company:         company,
		InitialHomeOdds: parseOdds(cellText(visible, 1)),
		InitialHandicap: FormatHandicap(cellText(visible, 2)),
		InitialAwayOdds: parseOdds(cellText(visible, 3)),
		LiveHomeOdds:    parseOdds(cellText(visible, 4)),
		LiveHandicap:    FormatHandicap(cellText(visible, 5)),
		LiveAwayOdds:    parseOdds(cellText(visible, 6)),
	}, true
}

// historyTable names one of the three record tables of the analysis page.
type historyTable struct {
	table     string
	rowPrefix string
	selector  string
}

var (
	homeHistoryTable = historyTable{table: "table_hn", rowPrefix: "trhn_", selector: "#hn_s"}
	awayHistoryTable = historyTable{table: "table_an", rowPrefix: "tran_", selector: "#an_s"}
	headToHeadTable  = historyTable{table: "table_v", rowPrefix: "trv_", selector: "#v_s"}
)

func parseHistory(html string) (match.History, error) {
	doc, err := newDocument(html)
	if err != nil {
		return match.History{}, err
	}
	return match.History{
		HomeHistory: parseHistoryTable(doc, homeHistoryTable),
		AwayHistory: parseHistoryTable(doc, awayHistoryTable),
		HeadToHead:  parseHistoryTable(doc, headToHeadTable),
	}, nil
}

func parseHistoryTable(doc *goquery.Document, spec historyTable) []match.HistoryEntry {
	out := make([]match.HistoryEntry, 0, 16)
	doc.Find("table#" + spec.table + " tr").Each(func(_ int, row *goquery.Selection) {
		if !strings.HasPrefix(row.AttrOr("id", ""), spec.rowPrefix) {
			return
		}
		cells := row.Find("td")
		n := cells.Length()
		if n < historyMinCells {
			return
		}

		entry := match.HistoryEntry{
			League:         collapseSpaces(cells.Eq(0).Text()),
			Date:           cellText(cells, 1),
			HomeTeam:       collapseSpaces(cells.Eq(2).Text()),
			Corner:         cellText(cells, 4),
			AwayTeam:       collapseSpaces(cells.Eq(5).Text()),
			Result:         firstMarker(cellText(cells, n-3), "胜", "平", "负"),
			HandicapResult: firstMarker(cellText(cells, n-2), "赢", "走", "输"),
			GoalResult:     firstMarker(cellText(cells, n-1), "大", "走", "小"),
		}
		if score := cellText(cells, 3); score != "" {
			if m := halfScoreRegex.FindStringSubmatch(score); m != nil {
				entry.Score = strings.TrimSpace(m[1])
				entry.HalfTimeScore = strings.TrimSpace(m[2])
			} else {
				entry.Score = score
			}
		}
		handicap := cells.Eq(7)
		if link := handicap.Find("a").First(); link.Length() > 0 {
			entry.Handicap = FormatHandicap(strings.TrimSpace(link.Text()))
		} else {
			entry.Handicap = FormatHandicap(strings.TrimSpace(handicap.Text()))
		}
		out = append(out, entry)
	})
	return out
}

func firstMarker(text string, markers ...string) string {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return marker
		}
	}
	return ""
}

// parseBasicInfo reads the match header rendered above the odds table.
func parseBasicInfo(matchID, pageURL, html string) (match.Record, error) {
	doc, err := newDocument(html)
	if err != nil {
		return match.Record{}, err
	}

	record := match.Record{ID: matchID, PlayState: match.PlayStateUpcoming}
	head := doc.Find(".analyhead").First()
	if head.Length() == 0 {
		return record, nil
	}

	record.HomeTeam = match.Team{
		Name: strings.TrimSpace(strings.ReplaceAll(head.Find(".home a").First().Text(), "(主)", "")),
		Logo: absoluteURL(pageURL, head.Find(".home img").First().AttrOr("src", "")),
	}
	record.AwayTeam = match.Team{
		Name: strings.TrimSpace(head.Find(".guest a").First().Text()),
		Logo: absoluteURL(pageURL, head.Find(".guest img").First().AttrOr("src", "")),
	}
	record.League = strings.TrimSpace(head.Find(".vs .row .LName").First().Text())

	rows := head.Find(".vs .row")
	record.MatchTime = matchTimeRegex.FindString(rows.First().Text())
	if info := rows.Eq(2); info.Length() > 0 {
		if place := info.Find(".place").First(); place.Length() > 0 {
			record.Venue = strings.TrimSpace(strings.ReplaceAll(place.Text(), "场地：", ""))
		}
		labels := info.Find("label")
		if labels.Length() > 0 {
			record.Weather = strings.TrimSpace(strings.ReplaceAll(labels.Eq(0).Text(), "天气：", ""))
		}
		if labels.Length() > 1 {
			record.Temperature = strings.TrimSpace(strings.ReplaceAll(labels.Eq(1).Text(), "温度：", ""))
		}
	}

	if half := doc.Find(".half").First(); half.Length() > 0 {
		record.MatchStatus = strings.TrimSpace(half.Text())
		scores := half.Find("span.rate")
		if scores.Length() == 2 {
			home, away := cellText(scores, 0), cellText(scores, 1)
			if home != "-" && away != "-" {
				record.PlayState = match.PlayStatePlaying
				record.HomeScore = parseScore(home)
				record.AwayScore = parseScore(away)
			}
		}
	} else if vs := doc.Find(".row.vs#headVs").First(); vs.Length() > 0 {
		text := strings.TrimSpace(vs.Find("span.score").First().Text())
		if m := scorePairRegex.FindStringSubmatch(text); text != "-" && m != nil {
			record.PlayState = match.PlayStatePlaying
			record.HomeScore = parseScore(m[1])
			record.AwayScore = parseScore(m[2])
		}
	}

	return record, nil
}

func parseScore(text string) *int {
	digits := leadingIntRegex.FindString(strings.TrimSpace(text))
	if digits == "" {
		return nil
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &v
}

func absoluteURL(pageURL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	base, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

type standingsRow struct {
	rank   *string
	points *string
	name   string
}

// parseRankings assigns the two standings rows of the analysis page to the
// home and away team by case-insensitive name containment.
func parseRankings(html, homeTeam, awayTeam string) (match.Rankings, error) {
	doc, err := newDocument(html)
	if err != nil {
		return match.Rankings{}, err
	}

	var rows []standingsRow
	doc.Find(".standings-box .st-list.on").EachWithBreak(func(i int, item *goquery.Selection) bool {
		rows = append(rows, standingsRow{
			rank:   optionalText(item.Find("i").First()),
			points: optionalText(item.Find("span").First()),
			name:   strings.TrimSpace(item.Find("a").First().Text()),
		})
		return len(rows) < 2
	})

	var rankings match.Rankings
	if homeTeam == "" || awayTeam == "" {
		return rankings, nil
	}

	homeMatched, awayMatched := false, false
	for i, row := range rows {
		if row.name == "" {
			continue
		}
		switch {
		case (i == 0 || !homeMatched) && sameTeam(row.name, homeTeam):
			rankings.HomeTeam = match.TeamRanking{Rank: row.rank, Points: row.points}
			homeMatched = true
		case (i == 0 || !awayMatched) && sameTeam(row.name, awayTeam):
			rankings.AwayTeam = match.TeamRanking{Rank: row.rank, Points: row.points}
			awayMatched = true
		}
	}
	return rankings, nil
}

func optionalText(s *goquery.Selection) *string {
	if s.Length() == 0 {
		return nil
	}
	v := strings.TrimSpace(s.Text())
	return &v
}

func sameTeam(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
