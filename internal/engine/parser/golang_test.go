package parser

import (
	"sync"
	"testing"

	"layercheck/internal/engine/codebase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerSource = `package orders

import (
	"context"
	"fmt"

	domain "example.com/shop/internal/domain"
	"example.com/shop/internal/infra/db"
	_ "embed"
	yaml "gopkg.in/yaml.v3"
)

type Store interface {
	Save(ctx context.Context, o domain.Order) error
}

type OrderHandler struct {
	store Store
	repo  *db.Repository
}

func (h *OrderHandler) Handle(ctx context.Context, id string) error {
	o := domain.NewOrder(id)
	if err := h.store.Save(ctx, o); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func NewOrderHandler(s Store) *OrderHandler {
	return &OrderHandler{store: s}
}

var (
	defaultTimeout = 5
	codec          = yaml.Marshal
)

const name, version = "orders", 1
`

func refsOf(d Declaration) []string {
	out := make([]string, 0, len(d.Refs))
	for _, r := range d.Refs {
		out = append(out, r.ImportPath+"."+r.Name)
	}
	return out
}

func byName(f *File, name string) []Declaration {
	out := make([]Declaration, 0)
	for _, d := range f.Declarations {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

func TestGoExtractor_Declarations(t *testing.T) {
	p := NewParser()
	f, err := p.ParseFile("internal/app/orders/handler.go", []byte(handlerSource))
	require.NoError(t, err)

	assert.Equal(t, "orders", f.PackageName)
	require.Len(t, f.Imports, 6)
	assert.Equal(t, "domain", f.Imports[2].Alias)
	assert.Equal(t, "_", f.Imports[4].Alias)

	store := byName(f, "Store")
	require.Len(t, store, 1)
	assert.Equal(t, codebase.KindInterface, store[0].Kind)
	assert.ElementsMatch(t, []string{"context.Context", "example.com/shop/internal/domain.Order"}, refsOf(store[0]))

	handler := byName(f, "OrderHandler")
	require.Len(t, handler, 2, "type declaration plus one method")
	assert.Equal(t, codebase.KindType, handler[0].Kind)
	assert.Contains(t, refsOf(handler[0]), "example.com/shop/internal/infra/db.Repository")
	assert.Contains(t, handler[0].Locals, "Store")

	method := handler[1]
	assert.True(t, method.Method)
	assert.False(t, handler[0].Method)
	assert.ElementsMatch(t, []string{
		"context.Context",
		"example.com/shop/internal/domain.NewOrder",
		"fmt.Errorf",
	}, refsOf(method))

	ctor := byName(f, "NewOrderHandler")
	require.Len(t, ctor, 1)
	assert.Equal(t, codebase.KindFunc, ctor[0].Kind)
	assert.Contains(t, ctor[0].Locals, "Store")
	assert.Contains(t, ctor[0].Locals, "OrderHandler")

	codec := byName(f, "codec")
	require.Len(t, codec, 1)
	assert.Equal(t, codebase.KindVar, codec[0].Kind)
	assert.Equal(t, []string{"gopkg.in/yaml.v3.Marshal"}, refsOf(codec[0]))

	assert.Len(t, byName(f, "defaultTimeout"), 1)
	assert.Len(t, byName(f, "name"), 1)
	assert.Len(t, byName(f, "version"), 1)
	assert.Equal(t, codebase.KindConst, byName(f, "version")[0].Kind)
}

func TestParser_ConcurrentUse(t *testing.T) {
	p := NewParser()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := p.ParseFile("x.go", []byte(handlerSource))
			if assert.NoError(t, err) {
				assert.NotEmpty(t, f.Declarations)
			}
		}()
	}
	wg.Wait()
}

func TestParser_RejectsNonGo(t *testing.T) {
	_, err := NewParser().ParseFile("README.md", []byte("# hi"))
	assert.Error(t, err)
}

func TestImportName(t *testing.T) {
	cases := map[string]string{
		"fmt":                                   "fmt",
		"example.com/shop/internal/domain":      "domain",
		"github.com/go-chi/chi/v5":              "chi",
		"gopkg.in/yaml.v3":                      "yaml",
		"github.com/tree-sitter/go-tree-sitter": "tree_sitter",
	}
	for in, want := range cases {
		assert.Equal(t, want, ImportName(in), in)
	}
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, IsTestFile("a/b_test.go"))
	assert.False(t, IsTestFile("a/b.go"))
}
