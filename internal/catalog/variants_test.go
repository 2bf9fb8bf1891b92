package catalog

import (
	"reflect"
	"testing"

	"github.com/Conversly/storefront/internal/types"
)

func flag(b bool) *bool { return &b }

func TestSelectableSizes(t *testing.T) {
	p := types.Product{
		ID:     "shirt",
		Images: []string{"shirt.jpg"},
		Variants: []types.Variant{
			{
				ColorName: "Red",
				Images:    []string{"red.jpg"},
				Sizes: []types.SizeStock{
					{Size: types.SizeXL, Quantity: 2},
					{Size: types.SizeS, Quantity: 0},
					{Size: types.SizeM, Quantity: 5},
				},
			},
			{
				ColorName: "Blue",
				InStock:   flag(false),
				Sizes:     []types.SizeStock{{Size: types.SizeM, Quantity: 3}},
			},
		},
	}

	if got := SelectableSizes(p, 0); !reflect.DeepEqual(got, []types.Size{types.SizeM, types.SizeXL}) {
		t.Fatalf("red sizes = %v", got)
	}
	if !CanSelect(p, 0, types.SizeXL) || CanSelect(p, 0, types.SizeS) {
		t.Fatal("zero stock must not be selectable")
	}
	if CanSelect(p, 1, types.SizeM) {
		t.Fatal("variant marked out of stock must not be selectable")
	}
	if len(SelectableSizes(p, 7)) != 0 {
		t.Fatal("unknown variant should have no sizes")
	}

	p.InStock = flag(false)
	if CanSelect(p, 0, types.SizeM) {
		t.Fatal("product marked out of stock must not be selectable")
	}

	if got := Images(p, 0); got[0] != "red.jpg" {
		t.Fatalf("variant images = %v", got)
	}
	if got := Images(p, 1); got[0] != "shirt.jpg" {
		t.Fatalf("fallback images = %v", got)
	}
}
