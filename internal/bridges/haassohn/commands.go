package haassohn

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-haassohn/internal/state"
)

// writableAttributes maps the paths the stove accepts writes on to the
// attribute name used in the POST body.
var writableAttributes = map[string]string{
	"device.prg":      "prg",
	"device.sp_temp":  "sp_temp",
	"device.eco_mode": "eco_mode",
}

// pathEcoMode is gated by PathEcoEditable.
const pathEcoMode = "device.eco_mode"

// commandQueueSize bounds commands waiting for the poll loop.
const commandQueueSize = 16

// Attribute returns the POST attribute for path, or false if the stove does
// not accept writes on it.
func Attribute(path string) (string, bool) {
	attr, ok := writableAttributes[path]
	return attr, ok
}

// Command is a client write waiting for dispatch.
type Command struct {
	ID       string
	Path     string
	Value    any
	Source   string
	Received time.Time
}

// CommandResult is the outcome of one command.
type CommandResult struct {
	Command
	Status    AckStatus
	Code      string
	Err       error
	Completed time.Time
}

// CommandRecorder persists command outcomes.
// It is satisfied by *state.SQLiteRepository.
type CommandRecorder interface {
	RecordCommand(ctx context.Context, rec state.CommandRecord) error
}

// CommandObserver is told about every command outcome (MQTTLink publishes
// acks from it).
type CommandObserver interface {
	CommandCompleted(res CommandResult)
}

// HandleChange is a state.Listener. Unacknowledged writes to writable paths
// are queued for the poll loop; everything else is ignored, including the
// bridge's own acknowledged writes.
func (b *Bridge) HandleChange(ctx context.Context, change state.Change) {
	if change.Ack {
		return
	}
	if _, ok := Attribute(change.Path); !ok {
		return
	}

	cmd := Command{
		ID:       change.CommandID,
		Path:     change.Path,
		Value:    change.Value,
		Source:   change.Source,
		Received: change.Timestamp,
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	select {
	case b.commands <- cmd:
		b.logDebug("command queued", "command_id", cmd.ID, "path", cmd.Path, "source", cmd.Source)
	case <-b.done:
		b.logWarn("bridge stopped, dropping command", "command_id", cmd.ID, "path", cmd.Path)
	case <-ctx.Done():
		b.logWarn("command cancelled before dispatch", "command_id", cmd.ID, "path", cmd.Path)
	}
}

// dispatch runs on the poll loop goroutine.
func (b *Bridge) dispatch(ctx context.Context, cmd Command) {
	res, sent := b.execute(ctx, cmd)
	res.Completed = b.now()
	b.complete(ctx, res)

	// The stove may rotate its nonce with every request.
	if sent || errors.Is(res.Err, ErrNoSessionToken) {
		b.pollCycle(ctx)
	}
}

// execute sends cmd to the stove. sent reports whether a POST was made.
func (b *Bridge) execute(ctx context.Context, cmd Command) (res CommandResult, sent bool) {
	res = CommandResult{Command: cmd}

	attr, ok := Attribute(cmd.Path)
	if !ok {
		return rejected(res, ErrCodeNotWritable, ErrNotWritable), false
	}
	if b.session.Disabled() {
		return rejected(res, ErrCodeBridgeDisabled, ErrDisabled), false
	}

	if cmd.Path == pathEcoMode {
		editable, err := b.ecoEditable(ctx)
		if err != nil {
			b.logError("reading eco mode editability failed", "error", err)
			return rejected(res, ErrCodeBridgeError, err), false
		}
		if !editable {
			b.logWarn("eco mode is not editable on this stove, command dropped",
				"command_id", cmd.ID, "value", cmd.Value)
			return rejected(res, ErrCodeNotEditable, ErrEcoNotEditable), false
		}
	}

	token, ok := b.session.Token()
	if !ok {
		b.logWarn("no session token yet, command dropped", "command_id", cmd.ID, "path", cmd.Path)
		return rejected(res, ErrCodeNoSessionToken, ErrNoSessionToken), false
	}

	b.logDebug("sending command", "command_id", cmd.ID, "attribute", attr, "value", cmd.Value,
		"token_prefix", token[:6])

	if err := b.device.SendCommand(ctx, attr, cmd.Value, token); err != nil {
		b.logError("command was not successful", "command_id", cmd.ID, "path", cmd.Path,
			"value", cmd.Value, "error", err)
		res.Status, res.Err = AckFailed, err
		res.Code = ErrCodeProtocolError
		if errors.Is(err, ErrTransport) {
			res.Code = ErrCodeDeviceUnreachable
		}
		return res, true
	}

	if err := b.store.SetState(ctx, cmd.Path, cmd.Value, true); err != nil {
		b.logError("acknowledging command failed", "command_id", cmd.ID, "path", cmd.Path, "error", err)
		res.Status, res.Code, res.Err = AckFailed, ErrCodeBridgeError, err
		return res, true
	}

	b.logInfo("command accepted", "command_id", cmd.ID, "path", cmd.Path, "value", cmd.Value)
	res.Status = AckAccepted
	return res, true
}

func rejected(res CommandResult, code string, err error) CommandResult {
	res.Status, res.Code, res.Err = AckRejected, code, err
	return res
}

// ecoEditable reads the stove-reported editability flag. A missing value
// counts as not editable.
func (b *Bridge) ecoEditable(ctx context.Context) (bool, error) {
	v, err := b.store.GetState(ctx, PathEcoEditable)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	editable, _ := v.Value.(bool)
	return editable, nil
}

// complete records and announces a command outcome.
func (b *Bridge) complete(ctx context.Context, res CommandResult) {
	if b.recorder != nil {
		rec := state.CommandRecord{
			ID:        res.ID,
			Path:      res.Path,
			Value:     res.Value,
			Status:    string(res.Status),
			CreatedAt: res.Completed,
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		if err := b.recorder.RecordCommand(ctx, rec); err != nil {
			b.logError("recording command failed", "command_id", res.ID, "error", err)
		}
	}
	if b.observer != nil {
		b.observer.CommandCompleted(res)
	}
}
