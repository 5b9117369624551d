package config

import "fmt"

func validate(c *Config) error {
	if c.Risk.InitialBalance <= 0 {
		return fmt.Errorf("risk.initial_balance must be positive")
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be in (0, 1]")
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct > 1 {
		return fmt.Errorf("risk.max_daily_loss_pct must be in (0, 1]")
	}
	if c.Risk.EmergencyStopPct <= 0 || c.Risk.EmergencyStopPct > 1 {
		return fmt.Errorf("risk.emergency_stop_pct must be in (0, 1]")
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive")
	}
	if c.Reconciler.PollIntervalSeconds <= 0 {
		return fmt.Errorf("reconciler.poll_interval_seconds must be positive")
	}
	if c.Reconciler.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("reconciler.call_timeout_seconds must be positive")
	}
	if c.Venues.Binance.Enabled {
		if c.Venues.Binance.APIKey == "" || c.Venues.Binance.SecretKey == "" {
			return fmt.Errorf("venues.binance.api_key and secret_key are required when binance is enabled")
		}
	}
	return nil
}
