package parser

import "testing"

func TestCleaner_CleanPages(t *testing.T) {
	c := NewCleaner(nil, 0)
	pages := []string{
		"某某证券研究所\n第 3 页\n  公司营业收入持续增长，毛利率改善。  \n\nabc\n",
		"2024年年度报告\n净利润   同比   提升\t明显\n",
		"",
	}
	got := c.CleanPages(pages)
	want := "公司营业收入持续增长，毛利率改善。 净利润 同比 提升 明显"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestCleaner_CustomKeywords(t *testing.T) {
	c := NewCleaner([]string{"CONFIDENTIAL", "Page "}, 3)
	got := c.CleanPages([]string{"CONFIDENTIAL REPORT\nRevenue grew\nPage 7\nok\nEBITDA up"})
	if got != "Revenue grew EBITDA up" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestCleaner_ShortLinesCountRunes(t *testing.T) {
	c := NewCleaner([]string{}, 5)
	// four CJK runes are twelve bytes but still too short
	got := c.CleanPages([]string{"资产负债\n资产负债率"})
	if got != "资产负债率" {
		t.Fatalf("unexpected %q", got)
	}
}
