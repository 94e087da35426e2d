package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/roulette-table-poc/internal/table"
)

// Table agrupa as métricas Prometheus da mesa
type Table struct {
	BetsPlaced  *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Payouts     prometheus.Counter
	PayoutTotal prometheus.Counter
	Custody     prometheus.Gauge
	Phase       prometheus.Gauge
}

func NewTable(reg prometheus.Registerer) *Table {
	m := &Table{
		BetsPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "table_bets_placed_total", Help: "apostas aceitas por lado",
		}, []string{"side"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "table_rejections_total", Help: "operações recusadas por operação e tipo de erro",
		}, []string{"op", "kind"}),
		Payouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "table_payouts_total", Help: "saques pagos",
		}),
		PayoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "table_payout_amount_total", Help: "soma dos prêmios pagos",
		}),
		Custody: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "table_custody_balance", Help: "saldo em custódia na mesa",
		}),
		Phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "table_phase", Help: "fase atual (0 open, 1 closed, 2 settled, 3 terminated)",
		}),
	}
	reg.MustRegister(m.BetsPlaced, m.Rejections, m.Payouts, m.PayoutTotal, m.Custody, m.Phase)
	return m
}

// Hooks liga os callbacks da mesa às métricas
func (m *Table) Hooks() table.Hooks {
	return table.Hooks{
		OnBetPlaced: func(s table.Side) { m.BetsPlaced.WithLabelValues(s.String()).Inc() },
		OnRejected:  func(op, kind string) { m.Rejections.WithLabelValues(op, kind).Inc() },
		OnPayout: func(amount int64) {
			m.Payouts.Inc()
			m.PayoutTotal.Add(float64(amount))
		},
		OnCustody: func(balance int64) { m.Custody.Set(float64(balance)) },
		OnPhase:   func(p table.Phase) { m.Phase.Set(float64(p)) },
	}
}
