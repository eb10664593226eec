package observability

import "time"

// ObserveGateway times one logical payment gateway call.
func (p *Prom) ObserveGateway(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil {
		status = "error"
		p.GatewayErrors.WithLabelValues(op).Inc()
	}
	p.GatewayDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}
