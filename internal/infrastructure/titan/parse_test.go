package titan

import (
	"testing"

	"github.com/riskibarqy/matchodds/internal/domain/match"
)

const europeOddsHTML = `<html><body>
<table id="oddsList_tab">
<tr id="oddstr_281"><td>1</td><td>威*(英国)*</td><td>2.10</td><td>3.30</td><td>3.60</td><td>45.2%</td><td>28.8%</td><td>26.0%</td><td>94.9%</td><td>0.95</td><td>0.96</td><td>0.94</td><td>05-14 17:02</td></tr>
<tr id="oddstr_82"><td>2</td><td>竞彩让球(-1)</td><td>-</td><td>3.50</td><td>1.80</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td>05-14 16:00</td></tr>
<tr id="oddstr_short"><td>3</td><td>broken</td></tr>
<tr id="header"><td>x</td></tr>
</table>
</body></html>`

func TestParseEuropeOdds(t *testing.T) {
	t.Parallel()

	quotes, err := parseEuropeOdds(europeOddsHTML, DefaultCompanyNames())
	if err != nil {
		t.Fatalf("parse europe odds: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}

	first := quotes[0]
	if first.Company != "威廉希尔（英国）" {
		t.Fatalf("unexpected company: %s", first.Company)
	}
	if first.HomeOdds == nil || *first.HomeOdds != 2.10 || *first.AwayOdds != 3.60 {
		t.Fatalf("unexpected odds: %+v", first)
	}
	if first.HomeWinRate == nil || *first.HomeWinRate != 45.2 || *first.ReturnRate != 94.9 {
		t.Fatalf("unexpected rates: %+v", first)
	}
	if *first.AwayKellyIndex != 0.94 || first.UpdateTime != "05-14 17:02" {
		t.Fatalf("unexpected kelly/update: %+v", first)
	}

	second := quotes[1]
	if second.Company != "中国竞彩官方（让球-1玩法）" {
		t.Fatalf("unexpected lottery company: %s", second.Company)
	}
	if second.HomeOdds != nil || second.ReturnRate != nil {
		t.Fatalf("blank cells must stay nil: %+v", second)
	}
}

const asiaOddsHTML = `<html><body>
<table id="odds"><tbody>
<tr class="thead2"><td>公司</td><td></td><td>主</td><td>盘</td><td>客</td><td>主</td><td>盘</td><td>客</td></tr>
<tr><td>澳*</td><td></td><td>0.90</td><td>*半/一</td><td>0.96</td><td>0.88</td><td goals="0.5"></td><td>0.98</td></tr>
<tr style="display: none"><td>hidden</td><td></td><td>1</td><td>平</td><td>1</td><td>1</td><td>平</td><td>1</td></tr>
<tr companyid="3"><td>multi</td><td></td><td>1</td><td>平</td><td>1</td><td>1</td><td>平</td><td>1</td></tr>
<tr><td>short</td><td>1</td></tr>
<tr id="maxTr"><td>最大值</td><td style="display:none">x</td><td>1.02</td><td>半</td><td>1.00</td><td>0.99</td><td>平/半</td><td>1.01</td></tr>
<tr id="minTr"><td>最小值</td><td>0.80</td><td>平</td><td>0.82</td></tr>
</tbody></table>
</body></html>`

func TestParseAsiaOdds(t *testing.T) {
	t.Parallel()

	quotes, err := parseAsiaOdds(asiaOddsHTML, DefaultCompanyNames())
	if err != nil {
		t.Fatalf("parse asia odds: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected bookmaker row plus max row, got %d: %+v", len(quotes), quotes)
	}

	row := quotes[0]
	if row.Company != "澳门" {
		t.Fatalf("unexpected company: %s", row.Company)
	}
	if row.InitialHandicap != "受让半球/一球" {
		t.Fatalf("unexpected initial handicap: %s", row.InitialHandicap)
	}
	if row.LiveHandicap != "0.5" {
		t.Fatalf("expected goals attribute fallback, got %q", row.LiveHandicap)
	}
	if row.InitialHomeOdds == nil || *row.InitialHomeOdds != 0.90 || *row.LiveAwayOdds != 0.98 {
		t.Fatalf("unexpected odds: %+v", row)
	}

	max := quotes[1]
	if !max.IsMaxValue || max.Company != "最大值" {
		t.Fatalf("unexpected max row: %+v", max)
	}
	if *max.InitialHomeOdds != 1.02 || max.InitialHandicap != "半球" || max.LiveHandicap != "平手/半球" {
		t.Fatalf("max row must skip hidden cells: %+v", max)
	}
}

func historyRow(id, score, handicap, result, handicapResult, goalResult string) string {
	return `<tr id="` + id + `"><td> 英超 </td><td>24-05-01</td><td>阿森纳  B</td><td>` + score + `</td><td>5-3</td><td>切尔西</td><td>x</td><td>` +
		handicap + `</td><td>x</td><td>x</td><td>x</td><td>x</td><td>` + result + `</td><td>` + handicapResult + `</td><td>` + goalResult + `</td></tr>`
}

func TestParseHistory(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<table id="table_hn">` +
		historyRow("trhn_1", "2-1(1-0)", `<a href="#">*半/一</a>`, "胜", "赢半", "大") +
		historyRow("other_1", "0-0", "平", "平", "走", "小") +
		`<tr id="trhn_2"><td>short</td></tr></table>
<table id="table_an">` +
		historyRow("tran_1", "0-0", "平", "平", "走", "小") +
		`</table>
<table id="table_v">` +
		historyRow("trv_1", "1-3(0-2)", "一", "负", "输", "大") +
		historyRow("trv_2", "延期", "", "", "", "") +
		`</table></body></html>`

	history, err := parseHistory(html)
	if err != nil {
		t.Fatalf("parse history: %v", err)
	}
	if len(history.HomeHistory) != 1 || len(history.AwayHistory) != 1 || len(history.HeadToHead) != 2 {
		t.Fatalf("unexpected table sizes: %d/%d/%d", len(history.HomeHistory), len(history.AwayHistory), len(history.HeadToHead))
	}

	want := match.HistoryEntry{
		League:         "英超",
		Date:           "24-05-01",
		HomeTeam:       "阿森纳 B",
		Score:          "2-1",
		HalfTimeScore:  "1-0",
		Corner:         "5-3",
		AwayTeam:       "切尔西",
		Result:         "胜",
		Handicap:       "受让半球/一球",
		HandicapResult: "赢",
		GoalResult:     "大",
	}
	if history.HomeHistory[0] != want {
		t.Fatalf("unexpected home entry:\n got %+v\nwant %+v", history.HomeHistory[0], want)
	}
	if history.AwayHistory[0].Handicap != "平手" || history.AwayHistory[0].HandicapResult != "走" {
		t.Fatalf("unexpected away entry: %+v", history.AwayHistory[0])
	}
	postponed := history.HeadToHead[1]
	if postponed.Score != "延期" || postponed.HalfTimeScore != "" || postponed.Result != "" {
		t.Fatalf("unexpected postponed entry: %+v", postponed)
	}
}

func TestParseHistory_MissingTablesAreEmpty(t *testing.T) {
	t.Parallel()

	history, err := parseHistory(`<html><body><p>no data</p></body></html>`)
	if err != nil {
		t.Fatalf("parse history: %v", err)
	}
	if history.HomeHistory == nil || len(history.HomeHistory) != 0 || len(history.HeadToHead) != 0 {
		t.Fatalf("expected empty non-nil tables: %+v", history)
	}
}

func TestParseMatchIDs(t *testing.T) {
	t.Parallel()

	html := `<table id="table_live"><tr id="tr1_2701234"><td>a</td></tr><tr id="tr2_2701234"></tr><tr id="tr1_2701300"></tr><tr id="tr1_"></tr></table>`
	ids, err := parseMatchIDs(html)
	if err != nil {
		t.Fatalf("parse ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "2701234" || ids[1] != "2701300" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

const headerHTML = `<html><body>
<div class="analyhead">
  <div class="home"><a>阿森纳(主)</a><img src="//zq.titan007.com/Image/team/19.png"></div>
  <div class="vs">
    <div class="row"><span class="LName">英超</span> 2025-05-15 01:00 星期四</div>
    <div class="row"><span class="score">-</span></div>
    <div class="row"><span class="place">场地：酋长球场</span><label>天气：晴</label><label>温度：18℃</label></div>
  </div>
  <div class="guest"><a>切尔西</a><img src="/Image/team/20.png"></div>
</div>
<div class="half">上半场 <span class="rate">1</span>:<span class="rate">0</span></div>
</body></html>`

func TestParseBasicInfo(t *testing.T) {
	t.Parallel()

	record, err := parseBasicInfo("2701234", "https://op1.titan007.com/oddslist/2701234.htm", headerHTML)
	if err != nil {
		t.Fatalf("parse basic info: %v", err)
	}

	if record.ID != "2701234" || record.League != "英超" || record.MatchTime != "2025-05-15 01:00" {
		t.Fatalf("unexpected header: %+v", record)
	}
	if record.HomeTeam.Name != "阿森纳" || record.HomeTeam.Logo != "https://zq.titan007.com/Image/team/19.png" {
		t.Fatalf("unexpected home team: %+v", record.HomeTeam)
	}
	if record.AwayTeam.Name != "切尔西" || record.AwayTeam.Logo != "https://op1.titan007.com/Image/team/20.png" {
		t.Fatalf("unexpected away team: %+v", record.AwayTeam)
	}
	if record.Venue != "酋长球场" || record.Weather != "晴" || record.Temperature != "18℃" {
		t.Fatalf("unexpected venue line: %+v", record)
	}
	if record.PlayState != match.PlayStatePlaying || *record.HomeScore != 1 || *record.AwayScore != 0 {
		t.Fatalf("unexpected live score: %+v", record)
	}
}

func TestParseBasicInfo_HeadVsScoreAndUpcoming(t *testing.T) {
	t.Parallel()

	live := `<div class="analyhead"><div class="home"><a>A</a></div><div class="guest"><a>B</a></div></div>
<div class="row vs" id="headVs"><span class="score">2-3</span></div>`
	record, err := parseBasicInfo("1", "", live)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if record.PlayState != match.PlayStatePlaying || *record.HomeScore != 2 || *record.AwayScore != 3 {
		t.Fatalf("unexpected score: %+v", record)
	}

	upcoming := `<div class="analyhead"><div class="home"><a>A</a></div></div>
<div class="row vs" id="headVs"><span class="score">-</span></div>`
	record, err = parseBasicInfo("1", "", upcoming)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if record.PlayState != match.PlayStateUpcoming || record.HomeScore != nil {
		t.Fatalf("expected upcoming without score: %+v", record)
	}
}

func TestParseRankings(t *testing.T) {
	t.Parallel()

	html := `<div class="standings-box">
<div class="st-list on"><i>3</i><a>Chelsea FC</a><span>62</span></div>
<div class="st-list"><i>9</i><a>ignored</a><span>1</span></div>
<div class="st-list on"><i>1</i><a>ARSENAL</a><span>80</span></div>
</div>`

	rankings, err := parseRankings(html, "Arsenal", "Chelsea")
	if err != nil {
		t.Fatalf("parse rankings: %v", err)
	}
	if rankings.HomeTeam.Rank == nil || *rankings.HomeTeam.Rank != "1" || *rankings.HomeTeam.Points != "80" {
		t.Fatalf("unexpected home ranking: %+v", rankings.HomeTeam)
	}
	if rankings.AwayTeam.Rank == nil || *rankings.AwayTeam.Rank != "3" || *rankings.AwayTeam.Points != "62" {
		t.Fatalf("unexpected away ranking: %+v", rankings.AwayTeam)
	}

	empty, err := parseRankings(html, "", "Chelsea")
	if err != nil {
		t.Fatalf("parse rankings: %v", err)
	}
	if empty.HomeTeam.Rank != nil || empty.AwayTeam.Rank != nil {
		t.Fatalf("expected no rankings without both names: %+v", empty)
	}
}
