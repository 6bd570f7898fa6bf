package domain

// FeeScenario is a preset of exchange fee rates used by backtests and sweeps.
type FeeScenario struct {
	ScenarioID  string  // "maker" | "taker" | "pessimistic"
	BuyFeeRate  float64 // fraction of cost charged on buys
	SellFeeRate float64 // fraction of revenue charged on sells
	FeeSpread   float64 // per-side rate fed to the overhead formula
}

// Scenario ID constants
const (
	ScenarioMaker       = "maker"
	ScenarioTaker       = "taker"
	ScenarioPessimistic = "pessimistic"
)

// Predefined fee scenarios.
var (
	FeeScenarioMaker = FeeScenario{
		ScenarioID:  ScenarioMaker,
		BuyFeeRate:  0.001,
		SellFeeRate: 0.001,
		FeeSpread:   0.001,
	}

	FeeScenarioTaker = FeeScenario{
		ScenarioID:  ScenarioTaker,
		BuyFeeRate:  0.002,
		SellFeeRate: 0.002,
		FeeSpread:   0.002,
	}

	FeeScenarioPessimistic = FeeScenario{
		ScenarioID:  ScenarioPessimistic,
		BuyFeeRate:  0.005,
		SellFeeRate: 0.005,
		FeeSpread:   0.005,
	}
)

// FeeScenarioByID returns the preset with the given ID.
func FeeScenarioByID(id string) (FeeScenario, bool) {
	switch id {
	case ScenarioMaker:
		return FeeScenarioMaker, true
	case ScenarioTaker:
		return FeeScenarioTaker, true
	case ScenarioPessimistic:
		return FeeScenarioPessimistic, true
	}
	return FeeScenario{}, false
}
