package urllist

import (
	"strings"
	"testing"
)

func TestReadList(t *testing.T) {
	input := `# weekly picks
https://example.com/a

  https://example.com/b
not a url
ftp://example.com/c
https://example.com/a
`
	items, err := ReadList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadList() error = %v", err)
	}
	want := []string{"https://example.com/a", "https://example.com/b"}
	if len(items) != len(want) {
		t.Fatalf("ReadList() = %+v, want %v", items, want)
	}
	for i, u := range want {
		if items[i].URL != u {
			t.Errorf("items[%d] = %q, want %q", i, items[i].URL, u)
		}
	}
}
