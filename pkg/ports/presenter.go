package ports

import "github.com/aretw0/cadence/pkg/domain"

// Presenter is the callback surface the engine requires from its host: how a
// beat becomes visible, how indicators repaint, and how end-of-story
// affordances appear. Every method is fire-and-forget; the engine never
// reads anything back.
//
// Callbacks run on the goroutine driving the engine (a navigation call or
// the progress clock). They must not synchronously call navigation methods
// on the same story; hosts with event loops forward to them instead.
type Presenter interface {
	// ApplyBeatState renders a beat. This is the one required callback.
	ApplyBeatState(state domain.BeatState, id domain.BeatID, index int)

	// RenderIndicators repaints the per-beat progress segments.
	RenderIndicators(fills []float64)

	ShowRestartControl()
	HideRestartControl()

	ShowContinueAffordance()
	HideContinueAffordance()

	EnableInput()
	DisableInput()
}

// BasePresenter is a no-op Presenter to embed when a host only cares about a
// subset of the surface.
type BasePresenter struct{}

func (BasePresenter) ApplyBeatState(domain.BeatState, domain.BeatID, int) {}
func (BasePresenter) RenderIndicators([]float64)                          {}
func (BasePresenter) ShowRestartControl()                                 {}
func (BasePresenter) HideRestartControl()                                 {}
func (BasePresenter) ShowContinueAffordance()                             {}
func (BasePresenter) HideContinueAffordance()                             {}
func (BasePresenter) EnableInput()                                        {}
func (BasePresenter) DisableInput()                                       {}

// PresenterFuncs adapts free functions to the Presenter interface. Nil
// fields are no-ops, so hosts wire only what they render.
type PresenterFuncs struct {
	OnApplyBeatState         func(state domain.BeatState, id domain.BeatID, index int)
	OnRenderIndicators       func(fills []float64)
	OnShowRestartControl     func()
	OnHideRestartControl     func()
	OnShowContinueAffordance func()
	OnHideContinueAffordance func()
	OnEnableInput            func()
	OnDisableInput           func()
}

func (p PresenterFuncs) ApplyBeatState(state domain.BeatState, id domain.BeatID, index int) {
	if p.OnApplyBeatState != nil {
		p.OnApplyBeatState(state, id, index)
	}
}

func (p PresenterFuncs) RenderIndicators(fills []float64) {
	if p.OnRenderIndicators != nil {
		p.OnRenderIndicators(fills)
	}
}

func (p PresenterFuncs) ShowRestartControl() {
	if p.OnShowRestartControl != nil {
		p.OnShowRestartControl()
	}
}

func (p PresenterFuncs) HideRestartControl() {
	if p.OnHideRestartControl != nil {
		p.OnHideRestartControl()
	}
}

func (p PresenterFuncs) ShowContinueAffordance() {
	if p.OnShowContinueAffordance != nil {
		p.OnShowContinueAffordance()
	}
}

func (p PresenterFuncs) HideContinueAffordance() {
	if p.OnHideContinueAffordance != nil {
		p.OnHideContinueAffordance()
	}
}

func (p PresenterFuncs) EnableInput() {
	if p.OnEnableInput != nil {
		p.OnEnableInput()
	}
}

func (p PresenterFuncs) DisableInput() {
	if p.OnDisableInput != nil {
		p.OnDisableInput()
	}
}
