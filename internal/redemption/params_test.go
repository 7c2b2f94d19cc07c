package redemption

import (
	"errors"
	"net/url"
	"testing"

	"cuprecap/internal/domain"
)

func TestParseParams(t *testing.T) {
	q, _ := url.ParseQuery("redeem=13800001234&rank=7")
	p, err := ParseParams(q)
	if err != nil {
		t.Fatalf("ParseParams error: %v", err)
	}
	if p.Phone != "13800001234" || p.Rank != 7 {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestParseParamsFallback(t *testing.T) {
	for _, raw := range []string{"", "redeem=138", "rank=3", "redeem=&rank=3", "redeem=138&rank=abc", "redeem=138&rank=3.5"} {
		q, _ := url.ParseQuery(raw)
		if _, err := ParseParams(q); !errors.Is(err, domain.ErrNoRedeemParams) {
			t.Errorf("ParseParams(%q) err = %v, want ErrNoRedeemParams", raw, err)
		}
	}
}

func TestParseParamsInvalidRank(t *testing.T) {
	for _, raw := range []string{"redeem=138&rank=0", "redeem=138&rank=-4"} {
		q, _ := url.ParseQuery(raw)
		if _, err := ParseParams(q); !errors.Is(err, domain.ErrInvalidRank) {
			t.Errorf("ParseParams(%q) err = %v, want ErrInvalidRank", raw, err)
		}
	}
}

func TestURL(t *testing.T) {
	if got := URL("https://recap.example.com/", "13800001234", 12); got != "https://recap.example.com/?redeem=13800001234&rank=12" {
		t.Fatalf("unexpected URL: %s", got)
	}
	if got := URL("https://recap.example.com/?utm=poster", "138 0000", 1); got != "https://recap.example.com/?utm=poster&redeem=138+0000&rank=1" {
		t.Fatalf("unexpected URL with existing query: %s", got)
	}

	u, err := url.Parse(URL("https://recap.example.com/", "13800001234", 12))
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	p, err := ParseParams(u.Query())
	if err != nil || p.Rank != 12 || p.Phone != "13800001234" {
		t.Fatalf("URL/ParseParams round trip failed: %+v %v", p, err)
	}
}
