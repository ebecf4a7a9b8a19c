package importer

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/model"
)

const planillaHead = "Fecha,Operación,Moneda,Monto,Tipo de cambio,Total,DNI,Cliente\n"

func TestPlanillaParser_Parse(t *testing.T) {
	data, err := os.ReadFile("testdata/planilla.csv")
	require.NoError(t, err)

	p := &PlanillaParser{}
	drafts, err := p.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, drafts, 4, "blank rows are skipped")

	first := drafts[0]
	assert.Equal(t, "Compra", first.Type)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, "1000.00", first.Amount)
	assert.Equal(t, "3.70", first.Rate)
	assert.Equal(t, "2025-01-03", first.Date)
	assert.Equal(t, "45678912", first.CustomerDNI)
	assert.Equal(t, "María Quispe", first.CustomerName)

	assert.Equal(t, "2025-01-06", drafts[2].Date)
	assert.Equal(t, "150.50", drafts[3].Amount)
	assert.Equal(t, "2025-01-22", drafts[3].Date)
}

func TestPlanillaParser_DraftsValidate(t *testing.T) {
	data, err := os.ReadFile("testdata/planilla.csv")
	require.NoError(t, err)
	drafts, err := (&PlanillaParser{}).Parse(bytes.NewReader(data))
	require.NoError(t, err)

	checker := currencies{model.USD: true, model.EUR: true}
	for i, d := range drafts {
		txn, errs := d.Parse(checker, time.Now())
		require.Empty(t, errs, "draft %d", i)
		assert.True(t, txn.Total.Equal(txn.Amount.Mul(txn.Rate).Round(2)))
	}
}

type currencies map[model.Currency]bool

func (c currencies) Recognizes(cur model.Currency) bool { return c[cur] }

func TestPlanillaParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad date", "2025-01-03,Compra,USD,100,3.70,370,,\n", "parsing fecha"},
		{"total mismatch", "03/01/2025,Compra,USD,100,3.70,380,,\n", "does not match"},
		{"bad total", "03/01/2025,Compra,USD,100,3.70,abc,,\n", "parsing total"},
		{"field count", "03/01/2025,Compra,USD\n", "wrong number of fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&PlanillaParser{}).Parse(strings.NewReader(planillaHead + tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPlanillaParser_WrongHeader(t *testing.T) {
	_, err := (&PlanillaParser{}).Parse(strings.NewReader("a,b,c,d,e,f,g,h\n1,2,3,4,5,6,7,8\n"))
	assert.ErrorContains(t, err, "unexpected planilla header")
}

func TestPlanillaParser_EmptyFile(t *testing.T) {
	drafts, err := (&PlanillaParser{}).Parse(strings.NewReader(planillaHead))
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestPlanillaParser_LeavesBadNumbersToValidation(t *testing.T) {
	drafts, err := (&PlanillaParser{}).Parse(strings.NewReader(planillaHead + "03/01/2025,Compra,USD,cien,3.70,370,,\n"))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "cien", drafts[0].Amount)
}

func TestExportParser_RoundTrip(t *testing.T) {
	txns := []model.Transaction{{
		ID:           "x1",
		Receipt:      "CMP-2025-01-001",
		Type:         model.Buy,
		Currency:     model.USD,
		Amount:       decimal.RequireFromString("1000"),
		Rate:         decimal.RequireFromString("3.7"),
		Total:        decimal.RequireFromString("3700"),
		Date:         time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		CustomerDNI:  "45678912",
		CustomerName: "María Quispe",
		UserID:       "u1",
	}}
	var buf bytes.Buffer
	require.NoError(t, ledger.WriteTransactions(&buf, txns))

	p := &ExportParser{}
	assert.True(t, p.Matches(strings.Split(ledger.Header, ",")))

	drafts, err := p.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, ledger.Draft{
		Type: "buy", Currency: "USD", Amount: "1000", Rate: "3.7", Date: "2025-01-03",
		CustomerDNI: "45678912", CustomerName: "María Quispe",
	}, drafts[0])
}

type stubParser struct{ name string }

func (s *stubParser) Parse(io.Reader) ([]ledger.Draft, error) { return nil, nil }
func (s *stubParser) Format() string                          { return s.name }
func (s *stubParser) Matches([]string) bool                   { return false }

func TestRegistry_GetUnknown(t *testing.T) {
	assert.Nil(t, NewRegistry().Get("bcp"))
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubParser{name: "Planilla"})
	assert.NotNil(t, r.Get("PLANILLA"))
	assert.Panics(t, func() { r.Register(&stubParser{name: "planilla"}) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"cambio", "planilla"}, r.Formats())
}

func TestRegistry_Detect(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	r := DefaultRegistry()

	p, err := r.Detect(write("a.csv", "\ufeffFECHA,Operacion,Moneda,Monto,Tipo de Cambio,Total,DNI,Cliente\n"))
	require.NoError(t, err)
	assert.Equal(t, "planilla", p.Format())

	p, err = r.Detect(write("b.csv", ledger.Header+"\n"))
	require.NoError(t, err)
	assert.Equal(t, "cambio", p.Format())

	_, err = r.Detect(write("c.csv", "Date,Description,Amount\n"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseFile(t *testing.T) {
	drafts, err := ParseFile(&PlanillaParser{}, "testdata/planilla.csv")
	require.NoError(t, err)
	assert.Len(t, drafts, 4)

	_, err = ParseFile(&PlanillaParser{}, "testdata/missing.csv")
	assert.Error(t, err)
}

func TestScan_FindsCSVs(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "import")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enero.csv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "FEBRERO.CSV"), []byte("xy"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notas.txt"), []byte("x"), 0o644))

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "FEBRERO.CSV", files[0].Name)
	assert.Equal(t, int64(2), files[0].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "import", "processed"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "import", "processed", "old.csv"), []byte("x"), 0o644))

	files, err := Scan(root)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScan_NoDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "import"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "import", "enero.csv"), []byte("x"), 0o644))

	require.NoError(t, MarkProcessed(root, "enero.csv"))

	_, err := os.Stat(filepath.Join(root, "import", "enero.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "import", "processed", "enero.csv"))
	assert.NoError(t, err)

	assert.Error(t, MarkProcessed(root, "enero.csv"), "already moved")
}
