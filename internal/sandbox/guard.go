package sandbox

import (
	"github.com/dop251/goja"
)

// installGuard applies defense-in-depth hardening underneath the platform
// sandbox. Each step is best-effort: a refused redefinition degrades to a
// weaker fallback and is recorded, never fatal. Must run before any capsule
// code executes.
func (r *Runtime) installGuard() []Hardening {
	return []Hardening{
		r.lockStorage("localStorage"),
		r.lockStorage("sessionStorage"),
		r.lockCookies(),
		r.removeWindowOpen(),
		r.suppressNavigation(),
	}
}

// lockStorage replaces a storage binding with a throwing accessor. If the
// accessor cannot be defined, the binding is cleared instead.
func (r *Runtime) lockStorage(name string) Hardening {
	throwing := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		panic(r.vm.NewTypeError("%s is disabled inside capsules", name))
	})

	err := r.vm.GlobalObject().DefineAccessorProperty(
		name, throwing, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	if err != nil {
		// Fallback: clear the binding entirely
		if setErr := r.vm.GlobalObject().Set(name, goja.Undefined()); setErr != nil {
			return Hardening{Step: name + "-lockdown", Applied: false, Detail: setErr.Error()}
		}
		return Hardening{Step: name + "-lockdown", Applied: true, Detail: "accessor refused, binding cleared"}
	}
	return Hardening{Step: name + "-lockdown", Applied: true}
}

// lockCookies installs a document whose cookie accessor reads empty and
// ignores writes.
func (r *Runtime) lockCookies() Hardening {
	doc := r.documentObject()

	empty := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue("")
	})
	sink := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	if err := doc.DefineAccessorProperty("cookie", empty, sink, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return Hardening{Step: "cookie-lockdown", Applied: false, Detail: err.Error()}
	}
	return Hardening{Step: "cookie-lockdown", Applied: true}
}

// removeWindowOpen drops the ability to open new browsing contexts.
func (r *Runtime) removeWindowOpen() Hardening {
	if err := r.vm.GlobalObject().Set("open", goja.Undefined()); err != nil {
		return Hardening{Step: "window-open-removal", Applied: false, Detail: err.Error()}
	}
	return Hardening{Step: "window-open-removal", Applied: true}
}

// suppressNavigation pins location to an inert object with no assign or
// replace, so script-driven navigation has nothing to call.
func (r *Runtime) suppressNavigation() Hardening {
	loc := r.vm.NewObject()
	loc.Set("href", "about:blank")
	loc.Set("origin", "null")

	if err := r.vm.GlobalObject().Set("location", loc); err != nil {
		return Hardening{Step: "navigation-suppression", Applied: false, Detail: err.Error()}
	}
	return Hardening{Step: "navigation-suppression", Applied: true}
}

// documentObject returns the sandbox's document, creating a minimal inert
// one when absent. Created elements expose no rendering contexts.
func (r *Runtime) documentObject() *goja.Object {
	if current := r.vm.Get("document"); current != nil && !goja.IsUndefined(current) && !goja.IsNull(current) {
		if obj, ok := current.(*goja.Object); ok {
			return obj
		}
	}

	doc := r.vm.NewObject()
	doc.Set("createElement", func(call goja.FunctionCall) goja.Value {
		return r.vm.NewObject()
	})
	r.vm.Set("document", doc)
	return doc
}
