package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewColor(t *testing.T) {
	red := NewColor("\033[31m")
	assert.Equal(t, "\033[31mERROR\033[0m", red("ERROR"))
}

func TestPredefinedColors(t *testing.T) {
	tests := []struct {
		name     string
		color    Color
		expected string
	}{
		{"Gray", Gray, "\033[90mtext\033[0m"},
		{"Green", Green, "\033[32mtext\033[0m"},
		{"Yellow", Yellow, "\033[33mtext\033[0m"},
		{"Red", Red, "\033[31mtext\033[0m"},
		{"Cyan", Cyan, "\033[36mtext\033[0m"},
		{"Bold", Bold, "\033[1mtext\033[0m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.color("text"))
		})
	}
}

func TestNewPalette(t *testing.T) {
	plain := NewPalette(false)
	for _, c := range []Color{plain.Success, plain.Failure, plain.Warning, plain.Detail, plain.Heading} {
		assert.Equal(t, "[+]", c("[+]"))
	}

	colored := NewPalette(true)
	assert.Equal(t, Green("[+]"), colored.Success("[+]"))
	assert.Equal(t, Red("[-]"), colored.Failure("[-]"))
	assert.Equal(t, Yellow("[!]"), colored.Warning("[!]"))
}
