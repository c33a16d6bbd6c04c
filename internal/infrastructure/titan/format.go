package titan

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

//go:embed companies.yaml
var companiesYAML []byte

var (
	lotteryHandicapRegex = regexp.MustCompile(`竞彩让.*?([+-]\d+)`)
	trailingMarkRegex    = regexp.MustCompile(`[\*\s]*$`)
	nonNumericRegex      = regexp.MustCompile(`[^\d.-]`)
	leadingNumberRegex   = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)
	whitespaceRegex      = regexp.MustCompile(`\s+`)
)

// CompanyNames maps the truncated bookmaker labels of the odds tables to
// display names.
type CompanyNames struct {
	Europe map[string]string `yaml:"europe"`
	Asia   map[string]string `yaml:"asia"`
}

func LoadCompanyNames(raw []byte) (CompanyNames, error) {
	var names CompanyNames
	if err := yaml.Unmarshal(raw, &names); err != nil {
		return CompanyNames{}, crerr.Wrap(err, "decode company names")
	}
	if names.Europe == nil {
		names.Europe = map[string]string{}
	}
	if names.Asia == nil {
		names.Asia = map[string]string{}
	}
	return names, nil
}

// DefaultCompanyNames returns the embedded table.
func DefaultCompanyNames() CompanyNames {
	names, err := LoadCompanyNames(companiesYAML)
	if err != nil {
		panic(err)
	}
	return names
}

func (n CompanyNames) EuropeName(company string) string {
	if company == "" {
		return ""
	}
	if m := lotteryHandicapRegex.FindStringSubmatch(company); m != nil {
		return fmt.Sprintf("中国竞彩官方（让球%s玩法）", m[1])
	}
	if name, ok := n.Europe[company]; ok {
		return name
	}
	return company
}

func (n CompanyNames) AsiaName(company string) string {
	if company == "" {
		return ""
	}
	if m := lotteryHandicapRegex.FindStringSubmatch(company); m != nil {
		return fmt.Sprintf("竞彩官方（让球%s玩法）", m[1])
	}
	if name, ok := n.Asia[company]; ok {
		return name
	}
	return company
}

var handicapSingles = map[string]string{
	"平": "平手",
	"半": "半球",
	"一": "一球",
	"二": "二球",
	"三": "三球",
	"四": "四球",
	"五": "五球",
}

var handicapCombos = map[string]string{
	"平/半":   "平手/半球",
	"半/一":   "半球/一球",
	"一/球半":  "一球/球半",
	"球半/两":  "球半/两球",
	"两/两球半": "两球/两球半",
}

// FormatHandicap expands the abbreviated handicap labels of the odds and
// history tables. A "*" marks the receiving side.
func FormatHandicap(handicap string) string {
	if handicap == "" {
		return ""
	}
	prefix := ""
	if strings.Contains(handicap, "*") {
		prefix = "受让"
	}
	h := strings.ReplaceAll(handicap, "*", "")
	if v, ok := handicapCombos[h]; ok {
		return prefix + v
	}
	if v, ok := handicapSingles[h]; ok {
		return prefix + v
	}
	return prefix + h
}

// parseOdds keeps digits, dots and minus signs and reads the leading number.
// Blank or unparseable cells are nil.
func parseOdds(text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	m := leadingNumberRegex.FindString(nonNumericRegex.ReplaceAllString(text, ""))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

func trimCompanyMark(company string) string {
	return strings.TrimSpace(trailingMarkRegex.ReplaceAllString(company, ""))
}

func collapseSpaces(text string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(text), " ")
}
