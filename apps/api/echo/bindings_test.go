package echoapi

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

func TestOrdering_Bind(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []core.DBOrdering
	}{
		{name: "no params", url: "/"},
		{name: "no ordering param", url: "/?search=awe"},
		{name: "empty ordering", url: "/?ordering="},
		{name: "ascending", url: "/?ordering=name", want: []core.DBOrdering{{Field: "name", Ascending: true}}},
		{name: "descending", url: "/?ordering=-created_at", want: []core.DBOrdering{{Field: "created_at"}}},
		{
			name: "multiple",
			url:  "/?ordering=grade,-name",
			want: []core.DBOrdering{{Field: "grade", Ascending: true}, {Field: "name"}},
		},
		{
			name: "spaces trimmed",
			url:  "/?ordering=grade,%20-name",
			want: []core.DBOrdering{{Field: "grade", Ascending: true}, {Field: "name"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			ctx := echo.New().NewContext(req, httptest.NewRecorder())

			ordering := new(Ordering)
			ordering.Bind(ctx)
			if !reflect.DeepEqual(ordering.Orderings, tt.want) {
				t.Errorf("Bind() = %+v, want %+v", ordering.Orderings, tt.want)
			}
		})
	}
}
