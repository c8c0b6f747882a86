package signal

import "github.com/dkeye/voicerelay/internal/core"

func (ctl *SignalWSController) handlePing(conn core.Channel) {
	ctl.sendJSON(conn, core.PongOut{Type: core.TypePong})
}
