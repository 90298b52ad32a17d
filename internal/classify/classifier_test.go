package classify

import (
	"strings"
	"testing"

	"github.com/ignite/tradeintel/internal/domain"
)

func TestClassify(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		dim  domain.Dimension
		raw  string
		want string
	}{
		{"road", domain.DimTransport, "TRANSPORTE CARRETERO", "CARRETERO"},
		{"air accented lowercase", domain.DimTransport, "transporte aéreo", "AEREO"},
		{"air unaccented", domain.DimTransport, "AEREO", "AEREO"},
		{"sea accented", domain.DimTransport, "MARÍTIMO", "MARITIMO"},
		{"road wins over air", domain.DimTransport, "CARRETERO AEREO", "CARRETERO"},
		{"rail is not declared", domain.DimTransport, "FERROVIARIO", "NOT_DECLARED"},
		{"empty transport", domain.DimTransport, "", "NOT_DECLARED"},

		{"hs chapter 84", domain.DimCommodity, "8471.30.01", "84"},
		{"hs padded", domain.DimCommodity, " 8544", "85"},
		{"hs unlisted chapter", domain.DimCommodity, "3926", "OTHERS"},
		{"hs too short", domain.DimCommodity, "8", "OTHERS"},
		{"hs empty", domain.DimCommodity, "", "OTHERS"},

		{"usa spanish", domain.DimOrigin, "Estados Unidos de América", "USA"},
		{"usa code", domain.DimOrigin, "USA", "USA"},
		{"germany spanish", domain.DimOrigin, "ALEMANIA", "GERMANY"},
		{"france lowercase", domain.DimOrigin, "francia", "FRANCE"},
		{"taiwan before china", domain.DimOrigin, "TAIWAN, PROVINCIA DE CHINA", "TAIWAN"},
		{"unlisted country", domain.DimOrigin, "JAPON", "OTHERS"},

		{"incoterm trimmed", domain.DimIncoterm, " DAP ", "DAP"},
		{"incoterm exact only", domain.DimIncoterm, "dap", "OTHERS"},
		{"incoterm unlisted", domain.DimIncoterm, "CIF", "OTHERS"},

		{"regime A1", domain.DimRegime, "A1", "A1"},
		{"regime IN", domain.DimRegime, "IN", "IN"},
		{"regime unlisted", domain.DimRegime, "V1", "OTHERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.dim, tt.raw)
			if got != tt.want {
				t.Errorf("Classify(%s, %q) = %s, want %s", tt.dim, tt.raw, got, tt.want)
			}
		})
	}
}

func TestClassifyPort(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		dispatch string
		entry    string
		want     string
	}{
		{"nuevo laredo on dispatch", "NUEVO LAREDO, NUEVO LAREDO, TAMAULIPAS", "", "NUEVO_LAREDO"},
		{"manzanillo lowercase on entry", "", "manzanillo, manzanillo, colima", "MANZANILLO"},
		{"airport", "AEROPUERTO INTERNACIONAL GENERAL MARIANO ESCOBEDO, APODACA, NUEVO LEON", "", "MONTERREY_AIRPORT"},
		{"colombia", "MONTERREY, GENERAL MARIANO ESCOBEDO, NUEVO LEÓN", "", "COLOMBIA_NL"},
		{"first configured match wins", "PUEBLA, HEROICA PUEBLA DE ZARAGOZA, PUEBLA", "NUEVO LAREDO, NUEVO LAREDO, TAMAULIPAS", "NUEVO_LAREDO"},
		{"unknown office", "TIJUANA, TIJUANA, BAJA CALIFORNIA", "", "OTHERS"},
		{"both empty", "", "", "OTHERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ClassifyPort(tt.dispatch, tt.entry)
			if got != tt.want {
				t.Errorf("ClassifyPort(%q, %q) = %s, want %s", tt.dispatch, tt.entry, got, tt.want)
			}
		})
	}
}

func TestClassify_Total(t *testing.T) {
	c := Default()
	inputs := []string{
		"",
		"\xff\xfe\xfd",
		"🚚 carretera 🚢",
		strings.Repeat("ñandú ", 50000),
		"\u0000​",
	}
	for _, dim := range domain.Dimensions {
		labels := c.Labels(dim)
		for _, in := range inputs {
			got := c.Classify(dim, in)
			if !contains(labels, got) {
				t.Errorf("Classify(%s, %.20q) = %q, not a label of the dimension", dim, in, got)
			}
		}
	}
}

func TestClassifyRecord(t *testing.T) {
	c := Default()
	got := c.ClassifyRecord(domain.ImportRecord{
		Transport:       "TRANSPORTE CARRETERO",
		DispatchCustoms: "NUEVO LAREDO, NUEVO LAREDO, TAMAULIPAS",
		HSCode:          "9018.90",
		OriginCountry:   "ESTADOS UNIDOS",
		Incoterm:        "FCA",
		CustomsRegime:   "IMPORTACION DEFINITIVA",
		CustomsRegimeID: "A1",
	})

	want := map[domain.Dimension]string{
		domain.DimRegime:    "A1",
		domain.DimTransport: "CARRETERO",
		domain.DimPort:      "NUEVO_LAREDO",
		domain.DimCommodity: "90",
		domain.DimOrigin:    "USA",
		domain.DimIncoterm:  "FCA",
	}
	for dim, label := range want {
		if got[dim] != label {
			t.Errorf("%s = %q, want %q", dim, got[dim], label)
		}
	}
}

func TestLabels_FallbackLast(t *testing.T) {
	c := Default()
	labels := c.Labels(domain.DimTransport)
	want := []string{"CARRETERO", "AEREO", "MARITIMO", "NOT_DECLARED"}
	if strings.Join(labels, ",") != strings.Join(want, ",") {
		t.Errorf("Labels(transport) = %v, want %v", labels, want)
	}
	if c.Fallback(domain.DimPort) != "OTHERS" {
		t.Errorf("Fallback(port) = %q", c.Fallback(domain.DimPort))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
