package engine

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookPosStepAdvance is a hook position that triggers when a step advances
// the cycle normally.
var HookPosStepAdvance = &HookPos{Name: "StepAdvance"}

// HookPosStall is a hook position that triggers when a step stalls the
// pipeline instead of advancing.
var HookPosStall = &HookPos{Name: "Stall"}

// HookPosFlush is a hook position that triggers when a step drains one flush
// cycle.
var HookPosFlush = &HookPos{Name: "Flush"}

// HookPosWriteBack is a hook position that triggers when an instruction
// reaches write-back and a result is collected.
var HookPosWriteBack = &HookPos{Name: "WriteBack"}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	hooks []Hook
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook triggers the registered Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
