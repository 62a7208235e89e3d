package domain

type HealthStatus string

const (
	HealthOK       HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "unhealthy"
)

type Health struct {
	Status     HealthStatus    `json:"status"`
	Components map[string]bool `json:"components"`
}

// NewHealth вычисляет статус по компонентам: все ок - healthy, ни одного - unhealthy.
func NewHealth(components map[string]bool) Health {
	ok := 0
	for _, v := range components {
		if v {
			ok++
		}
	}

	status := HealthDegraded
	switch {
	case len(components) > 0 && ok == len(components):
		status = HealthOK
	case ok == 0:
		status = HealthDown
	}
	return Health{Status: status, Components: components}
}
