package livepreview

import (
	"github.com/pthm/livepreview/lib/browser"
	"github.com/pthm/livepreview/lib/cslp"
)

// buildTooltip replaces the tooltip element. It runs on ready and after
// every server-rendered patch, which may have replaced the body.
func (e *Engine) buildTooltip() {
	body := e.doc.Body()
	if body == nil {
		return
	}

	e.mu.Lock()
	old, oldCancel := e.tooltip, e.tooltipCancel
	e.tooltip, e.tooltipCancel = nil, nil
	e.mu.Unlock()

	if oldCancel != nil {
		oldCancel()
	}
	if old != nil {
		old.Remove()
	}
	if stale := e.doc.ElementByID(TooltipID); stale != nil {
		stale.Remove()
	}

	tip := e.doc.CreateElement("div")
	tip.SetAttribute("id", TooltipID)
	tip.SetAttribute(AttrPosition, e.store.Get().EditButton.Position)
	body.AppendChild(tip)
	cancel := tip.OnClick(e.tooltipClick)

	e.mu.Lock()
	e.tooltip, e.tooltipCancel = tip, cancel
	e.mu.Unlock()

	e.renderTooltip()
}

// pointerOver moves the highlight to the innermost tagged element of the
// event path. Tagged ancestors further out lose the highlight, so nested
// tagged elements never show more than one.
func (e *Engine) pointerOver(ev browser.Event) {
	body := e.doc.Body()

	var found browser.Element
	for _, el := range ev.Path() {
		if body != nil && el.Same(body) {
			break
		}
		if _, ok := el.GetAttribute(cslp.Attribute); !ok {
			continue
		}
		if found == nil {
			found = el
			continue
		}
		el.RemoveClass(EditModeClass)
	}
	if found == nil {
		return
	}

	address, _ := found.GetAttribute(cslp.Attribute)
	ref := cslp.Decode(address)
	href, _ := found.GetAttribute("href")

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	prev := e.hovered
	changed := prev == nil || !prev.Same(found)
	hrefChanged := e.href != href
	e.hovered, e.hoveredRef, e.href = found, &ref, href
	if changed {
		e.field = Field{}
	}
	tip := e.tooltip
	e.mu.Unlock()

	if prev != nil && changed {
		prev.RemoveClass(EditModeClass)
	}
	found.AddClass(EditModeClass)

	if tip != nil {
		if href != "" {
			tip.SetAttribute(AttrCurrentHref, href)
		} else {
			tip.RemoveAttribute(AttrCurrentHref)
		}
	}
	if changed || hrefChanged {
		e.renderTooltip()
	}
	e.positionTooltip()

	if changed && e.opts.lookup != nil {
		go e.lookupField(found, ref)
	}
}

// positionTooltip keeps the tooltip above the hovered element.
func (e *Engine) positionTooltip() {
	e.mu.Lock()
	el, tip := e.hovered, e.tooltip
	e.mu.Unlock()
	if el == nil || tip == nil {
		return
	}

	rect := el.BoundingRect()
	var parentLeft float64
	if body := e.doc.Body(); body != nil {
		parentLeft = body.BoundingRect().Left
	}
	tip.SetStyle("top", px(tooltipTop(rect)))
	tip.SetStyle("left", px(rect.Left-parentLeft))
}

// tooltipTop sits the tooltip TooltipOffset above rect. When that is off
// the top of the viewport it clamps to 0, unless the element itself
// starts above the viewport, in which case it follows the element.
func tooltipTop(rect browser.Rect) float64 {
	top := rect.Top - TooltipOffset
	if top >= 0 {
		return top
	}
	if rect.Top < 0 {
		return rect.Top
	}
	return 0
}

func (e *Engine) tooltipClick(ev browser.Event) {
	action := ""
	for _, el := range ev.Path() {
		if a, ok := el.GetAttribute(AttrAction); ok {
			action = a
			break
		}
	}

	e.mu.Lock()
	ref, href := e.hoveredRef, e.href
	e.mu.Unlock()

	if action == ActionLink {
		if href != "" {
			e.win.Navigate(href)
		}
		return
	}
	if ref == nil || !e.editVisible() {
		return
	}
	if err := e.OpenInEditor(*ref); err != nil {
		e.log.Error(err, "cannot open field in the editor", "field", ref.FieldPath)
	}
}

// lookupField fetches el's schema details off the event path and hands
// the answer back through the dispatcher.
func (e *Engine) lookupField(el browser.Element, ref cslp.Reference) {
	f, err := e.opts.lookup.LookupField(e.ctx, ref)
	if err != nil {
		if e.ctx.Err() == nil {
			e.log.V(1).Info("field lookup failed", "field", ref.FieldPath, "error", err.Error())
		}
		return
	}
	e.opts.dispatch(func() { e.applyField(el, ref, f) })
}

// applyField shows f if el is still the hovered element.
func (e *Engine) applyField(el browser.Element, ref cslp.Reference, f Field) {
	e.mu.Lock()
	current := !e.closed && e.hovered != nil && e.hovered.Same(el)
	if current {
		e.field = f
	}
	e.mu.Unlock()

	if !current {
		e.log.V(1).Info("discarding stale field lookup", "field", ref.FieldPath)
		return
	}
	e.renderTooltip()
}
