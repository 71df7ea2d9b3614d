package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"ALL UPPER CASE", "all-upper-case"},
		{"  Lampada  da tavolo!", "lampada-da-tavolo"},
		{"Çocuk Ürünleri", "cocuk-urunleri"},
		{"Kadın Giyim", "kadin-giyim"},
		{"Crème brûlée", "creme-brulee"},
		{"Straße 5", "strasse-5"},
		{"--a--b--", "a-b"},
		{"你好", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestSKU(t *testing.T) {
	assert.Equal(t, "DESK-LAMP-40W", SKU("Desk lamp, 40W", 50))
	assert.Equal(t, "CAFFE-ITALIANO", SKU("Caffè italiano", 0))
	assert.Equal(t, "", SKU("!!!", 50))
}

func TestSKU_TruncatesOnWordBoundary(t *testing.T) {
	assert.Equal(t, "EXTRA-LONG", SKU("extra long product name", 12))
	assert.Equal(t, "ABCDEFGH", SKU("abcdefghijkl", 8))
}
