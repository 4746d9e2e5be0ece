package action

import (
	"log/slog"

	"github.com/soval/screen-trigger-go/domain/target"
)

// LogActuator records commands instead of transmitting them. Hosts replace
// it with a real device transport; it keeps the engine runnable standalone.
type LogActuator struct {
	Logger *slog.Logger
}

func (a *LogActuator) PerformAction(intensity int, durationSeconds float64, command target.Command, deviceAddresses, targetAddresses []string) error {
	if a.Logger != nil {
		a.Logger.Info("device command",
			"command", command.String(),
			"intensity", intensity,
			"duration", durationSeconds,
			"devices", deviceAddresses,
			"targets", targetAddresses)
	}
	return nil
}

func (a *LogActuator) IsTargetLoaded(deviceAddress, targetAddress string) bool { return true }

var _ Actuator = (*LogActuator)(nil)
