package amount

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestScaledUIRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		ui       float64
		decimals int32
		scaled   string
	}{
		{name: "one sol", ui: 1, decimals: SolDecimals, scaled: "1000000000"},
		{name: "fractional sol", ui: 0.000000001, decimals: SolDecimals, scaled: "1"},
		{name: "six decimal token", ui: 1234.5678, decimals: 6, scaled: "1234567800"},
		{name: "zero", ui: 0, decimals: 6, scaled: "0"},
		{name: "percent", ui: 42.25, decimals: PercentDecimals, scaled: "4225"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := TokensUI(tt.ui, tt.decimals)
			if got := a.Scaled().String(); got != tt.scaled {
				t.Fatalf("Scaled=%s, expected %s", got, tt.scaled)
			}
			want := decimal.NewFromFloat(tt.ui)
			if !a.UIDecimal().Equal(want) {
				t.Fatalf("UIDecimal=%s, expected %s", a.UIDecimal(), want)
			}
			back := FromScaled(a.Scaled(), tt.decimals)
			if !back.UIDecimal().Equal(a.UIDecimal()) {
				t.Fatalf("round trip changed value: %s != %s", back.UIDecimal(), a.UIDecimal())
			}
		})
	}
}

func TestAddIsImmutable(t *testing.T) {
	a := SolUI(1.5)
	b := a.Add(SolUI(0.25))

	if a.UI() != 1.5 {
		t.Fatalf("receiver mutated: %v", a.UI())
	}
	if b.UI() != 1.75 {
		t.Fatalf("Add=%v, expected 1.75", b.UI())
	}
}

func TestAddMixedResolutionKeepsReceiverDecimals(t *testing.T) {
	sol := SolUI(1)
	pct := PercentUI(50) // display value 50

	sum := sol.Add(pct)
	if sum.Decimals() != SolDecimals {
		t.Fatalf("decimals=%d, expected %d", sum.Decimals(), SolDecimals)
	}
	if sum.UI() != 51 {
		t.Fatalf("UI=%v, expected 51", sum.UI())
	}
}

func TestSubAndNeg(t *testing.T) {
	a := TokensUI(10, 6).Sub(TokensUI(4, 6))
	if a.UI() != 6 {
		t.Fatalf("Sub=%v, expected 6", a.UI())
	}
	if got := a.Neg().UI(); got != -6 {
		t.Fatalf("Neg=%v, expected -6", got)
	}
	if !a.Neg().IsNegative() || a.Neg().Abs().UI() != 6 {
		t.Fatalf("Abs/IsNegative inconsistent for %v", a.Neg())
	}
}

func TestFromUIRoundsBeyondResolution(t *testing.T) {
	a := FromUI(decimal.RequireFromString("1.0000000006"), SolDecimals)
	if got := a.Scaled().String(); got != "1000000001" {
		t.Fatalf("Scaled=%s, expected 1000000001", got)
	}
}

func TestMarshalJSONEmitsDisplayValue(t *testing.T) {
	payload := struct {
		In  Amount
		Out Amount
		Fee Amount
	}{
		In:  SolUI(1.5),
		Out: TokensUI(9900, 6),
		Fee: SolScaled(5000),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	want := `{"In":1.5,"Out":9900,"Fee":0.000005}`
	if got != want {
		t.Fatalf("json = %s, expected %s", got, want)
	}
}
