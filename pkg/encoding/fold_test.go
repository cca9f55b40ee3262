package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := map[string]string{
		"  Ubicación ":               "ubicacion",
		"Número":                     "numero",
		"Validación Alta Empleados":  "validacion alta empleados",
		"MotivosBaja.CSV":            "motivosbaja.csv",
		"":                           "",
	}

	for in, want := range tests {
		assert.Equal(t, want, Fold(in), "Fold(%q)", in)
	}
}
