package hooks

import (
	"fmt"

	"github.com/agenthud/hud/internal/daemon"
	"github.com/agenthud/hud/internal/events"
	"github.com/agenthud/hud/internal/lock"
	"github.com/agenthud/hud/internal/store"
)

// fileActivityTools are the tool names whose PostToolUse invocation is
// recorded in the file-activity sidecar.
var fileActivityTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"Read":         true,
	"NotebookEdit": true,
}

// Processor owns the state the hook binary mutates on each invocation. It
// holds no filesystem-scanning logic of its own — every read/write goes
// through store, lock and the activity/tombstone sidecars, which is what
// makes the resolver (which reads the same files) independently testable.
type Processor struct {
	Store      *store.Store
	Activity   *store.ActivityLog
	Tombstones *store.Tombstones
	LockBase   string

	// spawnHolder starts the detached lock-holder process that backs a
	// session's liveness lock. Tests override this to avoid forking a real
	// child.
	spawnHolder func(lockBase, path, sessionID string) (int, error)
}

// NewProcessor wires a Processor against the conventional on-disk layout
// under root.
func NewProcessor(root string) *Processor {
	return &Processor{
		Store:       store.Load(store.DefaultPath(root)),
		Activity:    store.LoadActivity(store.DefaultActivityPath(root)),
		Tombstones:  store.NewTombstones(store.DefaultTombstoneDir(root)),
		LockBase:    root,
		spawnHolder: daemon.SpawnHolder,
	}
}

// Process handles one hook invocation, dispatching on HookEventName.
// Unknown events and events for tombstoned sessions (other than
// SessionStart, which clears a tombstone) are logged and otherwise
// no-ops — a hook invocation the processor doesn't understand must never
// fail the calling tool call.
func (p *Processor) Process(in Input) error {
	event := classify(in.HookEventName)
	if event == "" {
		events.Infof("hooks: ignoring unrecognized event %q", in.HookEventName)
		return nil
	}

	if event != EventSessionStart && p.Tombstones.Has(in.SessionID) {
		events.Debugf("hooks: ignoring %s for tombstoned session %s", event, in.SessionID)
		return nil
	}

	switch event {
	case EventSessionStart:
		return p.onSessionStart(in)
	case EventUserPromptSubmit:
		return p.onUserPromptSubmit(in)
	case EventPreToolUse:
		return p.onPreToolUse(in)
	case EventPostToolUse:
		return p.onPostToolUse(in)
	case EventPermissionRequest:
		return p.onPermissionRequest(in)
	case EventPreCompact:
		return p.onPreCompact(in)
	case EventNotification:
		return p.onNotification(in)
	case EventStop:
		return p.onStop(in)
	case EventSessionEnd:
		return p.onSessionEnd(in)
	default:
		return nil
	}
}

// resolveCWD falls back to the session's last known cwd when the hook
// payload omits one — SessionEnd payloads in particular are not guaranteed
// to carry cwd.
func (p *Processor) resolveCWD(in Input) string {
	if in.CWD != "" {
		return in.CWD
	}
	if existing := p.Store.GetBySessionID(in.SessionID); existing != nil {
		return existing.CWD
	}
	return ""
}

func (p *Processor) metaMutator(in Input, eventName string) func(*store.SessionRecord) {
	return func(rec *store.SessionRecord) {
		if in.TranscriptPath != "" {
			rec.TranscriptPath = in.TranscriptPath
		}
		if in.PermissionMode != "" {
			rec.PermissionMode = in.PermissionMode
		}
		rec.LastEvent = &store.LastEvent{
			Name:     eventName,
			Time:     receivedAt(),
			ToolName: in.ToolName,
			Trigger:  in.Trigger,
		}
	}
}

func (p *Processor) onSessionStart(in Input) error {
	if err := p.Tombstones.Clear(in.SessionID); err != nil {
		return err
	}

	existing := p.Store.GetBySessionID(in.SessionID)
	if existing != nil && existing.State.IsActive() {
		// A SessionStart firing for an already-active session (e.g. a
		// resume) is a heartbeat, not a reset.
		return p.Store.Touch(in.SessionID, p.metaMutator(in, string(EventSessionStart)))
	}

	cwd := p.resolveCWD(in)
	if err := p.Store.Update(in.SessionID, store.StateReady, cwd, func(rec *store.SessionRecord) {
		rec.ProjectDir = cwd
		p.metaMutator(in, string(EventSessionStart))(rec)
	}); err != nil {
		return err
	}

	if cwd != "" && p.spawnHolder != nil {
		holderPID, err := p.spawnHolder(p.LockBase, cwd, in.SessionID)
		if err != nil {
			// The lock-holder is liveness plumbing, not session state: a
			// failure to spawn it degrades later resolves to the lockless
			// fallback window rather than failing the hook call.
			events.Warnf("hooks: spawning lock-holder for %s: %v", in.SessionID, err)
			return nil
		}
		// Recorded so SessionEnd can find and release this session's own
		// lock by the PID actually stamped on it, not a PID guessed from
		// the hook process's own process tree.
		if err := p.Store.Touch(in.SessionID, func(rec *store.SessionRecord) {
			rec.HolderPID = holderPID
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) onUserPromptSubmit(in Input) error {
	cwd := p.resolveCWD(in)
	return p.Store.Update(in.SessionID, store.StateWorking, cwd, func(rec *store.SessionRecord) {
		rec.WorkingOn = in.Prompt
		p.metaMutator(in, string(EventUserPromptSubmit))(rec)
	})
}

func (p *Processor) onPreToolUse(in Input) error {
	cwd := p.resolveCWD(in)
	mutate := func(rec *store.SessionRecord) {
		rec.WorkingOn = toolSummary(in)
		p.metaMutator(in, string(EventPreToolUse))(rec)
	}

	if existing := p.Store.GetBySessionID(in.SessionID); existing != nil && existing.State.IsActive() {
		// Already Working, Waiting or Compacting: a heartbeat, not a state
		// change — a PreToolUse must never regress Waiting/Compacting back
		// to Working.
		return p.Store.Touch(in.SessionID, mutate)
	}
	return p.Store.Update(in.SessionID, store.StateWorking, cwd, mutate)
}

func (p *Processor) onPostToolUse(in Input) error {
	cwd := p.resolveCWD(in)
	mutate := p.metaMutator(in, string(EventPostToolUse))

	existing := p.Store.GetBySessionID(in.SessionID)
	var err error
	if existing != nil && existing.State.IsActive() {
		err = p.Store.Touch(in.SessionID, mutate)
	} else {
		err = p.Store.Update(in.SessionID, store.StateWorking, cwd, mutate)
	}
	if err != nil {
		return err
	}

	if fileActivityTools[in.ToolName] && in.ToolInput.FilePath != "" {
		return p.Activity.Record(in.SessionID, cwd, in.ToolInput.FilePath, in.ToolName, receivedAt())
	}
	return nil
}

func (p *Processor) onPermissionRequest(in Input) error {
	cwd := p.resolveCWD(in)
	return p.Store.Update(in.SessionID, store.StateWaiting, cwd, func(rec *store.SessionRecord) {
		rec.WorkingOn = toolSummary(in)
		p.metaMutator(in, string(EventPermissionRequest))(rec)
	})
}

func (p *Processor) onPreCompact(in Input) error {
	cwd := p.resolveCWD(in)
	return p.Store.Update(in.SessionID, store.StateCompacting, cwd, p.metaMutator(in, string(EventPreCompact)))
}

// onNotification acts only on the idle_prompt subtype (the agent is idling
// waiting on the user); every other notification_type is a no-op, per the
// event table's Notification(other) = Skip row.
func (p *Processor) onNotification(in Input) error {
	if in.NotificationType != NotificationIdlePrompt {
		return nil
	}
	cwd := p.resolveCWD(in)
	return p.Store.Update(in.SessionID, store.StateReady, cwd, func(rec *store.SessionRecord) {
		rec.WorkingOn = in.Message
		p.metaMutator(in, string(EventNotification))(rec)
	})
}

// onStop is a no-op when stop_hook_active is set — that flag means this
// Stop firing is itself a continuation of an earlier stop hook, not the
// agent actually going idle, per the event table's Stop(stop_hook_active=true)
// = Skip row.
func (p *Processor) onStop(in Input) error {
	if in.StopHookActive {
		return nil
	}
	cwd := p.resolveCWD(in)
	return p.Store.Update(in.SessionID, store.StateReady, cwd, func(rec *store.SessionRecord) {
		rec.WorkingOn = ""
		p.metaMutator(in, string(EventStop))(rec)
	})
}

// onSessionEnd implements the delete protocol: when this is the last live
// lock for the session, tombstone it, delete its record, delete its
// file-activity row, and release its lock, strictly in that order, so a
// crash partway through never leaves a deleted record without its
// tombstone. A crash after the record is removed but before the release
// leaves the lock in place without its record. When a sibling lock for the same
// session (a second terminal) is still alive, only this session's own lock
// is released and the record survives.
//
// "This session's own lock" means the lock stamped with this record's
// HolderPID — the PID of the detached lock-holder internal/daemon.SpawnHolder
// started on SessionStart, not the hook process's own PID or its parent's,
// neither of which has any relationship to the lock-holder's PID.
func (p *Processor) onSessionEnd(in Input) error {
	holderPID := 0
	if existing := p.Store.GetBySessionID(in.SessionID); existing != nil {
		holderPID = existing.HolderPID
	}

	if others := lock.CountOtherLiveLocksForSession(p.LockBase, in.SessionID, holderPID); others > 0 {
		_, err := lock.ReleaseBySession(p.LockBase, in.SessionID, holderPID)
		return err
	}

	if err := p.Tombstones.Write(in.SessionID); err != nil {
		return fmt.Errorf("hooks: writing tombstone for %s: %w", in.SessionID, err)
	}
	if err := p.Store.Remove(in.SessionID); err != nil {
		return fmt.Errorf("hooks: removing record for %s: %w", in.SessionID, err)
	}
	if err := p.Activity.RemoveSession(in.SessionID); err != nil {
		return fmt.Errorf("hooks: removing activity for %s: %w", in.SessionID, err)
	}
	if _, err := lock.ReleaseBySession(p.LockBase, in.SessionID, holderPID); err != nil {
		return fmt.Errorf("hooks: releasing lock for %s: %w", in.SessionID, err)
	}
	return nil
}

func toolSummary(in Input) string {
	if in.ToolInput.FilePath != "" {
		return fmt.Sprintf("%s %s", in.ToolName, in.ToolInput.FilePath)
	}
	return in.ToolName
}
