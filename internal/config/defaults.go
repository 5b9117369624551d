package config

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8080"
	}

	if c.Risk.InitialBalance == 0 {
		c.Risk.InitialBalance = 10000
	}
	if c.Risk.MaxPositionPct == 0 {
		c.Risk.MaxPositionPct = 0.05
	}
	if c.Risk.MaxDailyLossPct == 0 {
		c.Risk.MaxDailyLossPct = 0.02
	}
	if c.Risk.StopLossPct == 0 {
		c.Risk.StopLossPct = 0.02
	}
	if c.Risk.TakeProfitPct == 0 {
		c.Risk.TakeProfitPct = 0.06
	}
	if c.Risk.MaxOpenPositions == 0 {
		c.Risk.MaxOpenPositions = 3
	}
	if c.Risk.MinRiskReward == 0 {
		c.Risk.MinRiskReward = 2.0
	}
	if c.Risk.MaxCorrelatedExposure == 0 {
		c.Risk.MaxCorrelatedExposure = 0.3
	}
	if c.Risk.EmergencyStopPct == 0 {
		c.Risk.EmergencyStopPct = 0.10
	}

	if c.Reconciler.PollIntervalSeconds == 0 {
		c.Reconciler.PollIntervalSeconds = 2
	}
	if c.Reconciler.CallTimeoutSeconds == 0 {
		c.Reconciler.CallTimeoutSeconds = 5
	}
	if c.Reconciler.LatencyWindow == 0 {
		c.Reconciler.LatencyWindow = 50
	}
	if c.Reconciler.BreakerThreshold == 0 {
		c.Reconciler.BreakerThreshold = 5
	}
	if c.Reconciler.BreakerCooldownSeconds == 0 {
		c.Reconciler.BreakerCooldownSeconds = 120
	}

	if c.Venues.Binance.Name == "" {
		c.Venues.Binance.Name = "binance"
	}
	if c.Venues.Binance.TimeoutSeconds == 0 {
		c.Venues.Binance.TimeoutSeconds = 15
	}

	if c.Audit.DBPath == "" {
		c.Audit.DBPath = "data/risk_events.db"
	}
}
