package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "simple path no params",
			key: CacheKey{
				Path: "/types/34/",
			},
			want: "market:types/34",
		},
		{
			name: "path with query params",
			key: CacheKey{
				Path: "/regions/",
				Query: url.Values{
					"page": []string{"2"},
				},
			},
			want: "market:regions:page=2",
		},
		{
			name: "multiple query params (sorted)",
			key: CacheKey{
				Path: "/market/10000002/orders/buy/",
				Query: url.Values{
					"type": []string{"https://crest-tq.eveonline.com/inventory/types/34/"},
					"page": []string{"1"},
				},
			},
			want: "market:market/10000002/orders/buy:page=1:type=https://crest-tq.eveonline.com/inventory/types/34/",
		},
		{
			name: "multi-valued param",
			key: CacheKey{
				Path:  "/types/",
				Query: url.Values{"id": []string{"1", "2"}},
			},
			want: "market:types:id=1,2",
		},
		{
			name: "empty path",
			key:  CacheKey{},
			want: "market",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	key := CacheKey{
		Path: "/types/34/",
		Query: url.Values{
			"b": []string{"2"},
			"a": []string{"1"},
			"c": []string{"3"},
		},
	}

	first := key.String()
	for i := 0; i < 50; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q != %q", got, first)
		}
	}
}
