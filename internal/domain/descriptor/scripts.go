package descriptor

import (
	"fmt"

	"github.com/capsulehq/capsuled/internal/domain/manifest"
)

// BridgeScript is injected into every sandbox frame before the bundle. It
// resolves the trusted parent origin, exposes the capsule messaging surface,
// and suppresses all posting when no origin can be resolved.
const BridgeScript = `(function(){
  'use strict';
  var trusted = null;
  try {
    var ancestors = window.location.ancestorOrigins;
    if (ancestors) {
      for (var i = 0; i < ancestors.length; i++) {
        if (ancestors[i] && ancestors[i] !== 'null') { trusted = ancestors[i]; break; }
      }
    }
  } catch (e) {}
  if (!trusted && document.referrer) {
    try { trusted = new URL(document.referrer).origin; } catch (e) {}
  }
  if (!trusted) {
    console.warn('capsule bridge: no trusted parent origin, messaging disabled');
  }
  var readySent = false;
  function post(type, payload) {
    if (!trusted) return;
    window.parent.postMessage({ type: type, payload: payload || {}, source: 'capsule-bridge' }, trusted);
  }
  window.capsule = {
    ready: function(bootTimeMs, capabilities) {
      if (readySent) return;
      readySent = true;
      post('ready', { bootTimeMs: bootTimeMs, capabilities: capabilities || [] });
    },
    log: function(level, message) { post('log', { level: level, message: message, timestamp: Date.now() }); },
    error: function(message) { post('error', { message: message }); },
    stats: function(stats) { post('stats', stats); },
    onCommand: function(fn) { window.__capsuleCommand = fn; }
  };
  window.addEventListener('message', function(event) {
    if (!trusted || event.origin !== trusted || event.source !== window.parent) return;
    var data = event.data;
    if (!data || typeof data.type !== 'string') return;
    try {
      if (window.__capsuleCommand) window.__capsuleCommand(data.type, data.payload || {});
    } catch (e) {
      post('error', { message: 'command handler failed: ' + String(e) });
    }
  });
})();`

// GuardScript locks down ambient authority inside the frame before any
// bundle code runs: storage, cookies, window.open, and navigation.
const GuardScript = `(function(){
  'use strict';
  ['localStorage', 'sessionStorage'].forEach(function(name) {
    try {
      Object.defineProperty(window, name, {
        get: function() { throw new TypeError(name + ' is not available in capsules'); },
        configurable: false
      });
    } catch (e) {
      try { window[name] = undefined; } catch (e2) {}
    }
  });
  try {
    Object.defineProperty(document, 'cookie', {
      get: function() { return ''; },
      set: function() {},
      configurable: false
    });
  } catch (e) {}
  try { window.open = undefined; } catch (e) {}
  try {
    window.addEventListener('beforeunload', function(event) { event.preventDefault(); });
  } catch (e) {}
})();`

// Bootstrap scripts per runner. client-static boots immediately; the other
// runners set up their execution environment first.
const (
	bootstrapClientStatic = `(function(){
  'use strict';
  var start = performance.now();
  function boot() {
    window.capsule.ready(Math.round(performance.now() - start), window.__capsuleCapabilities || []);
  }
  if (document.readyState === 'complete' || document.readyState === 'interactive') {
    boot();
  } else {
    document.addEventListener('DOMContentLoaded', boot);
  }
})();`

	bootstrapWebContainer = `(function(){
  'use strict';
  var start = performance.now();
  window.__capsuleContainer = { entry: window.__capsuleEntry || 'index.js' };
  window.addEventListener('capsule:container-ready', function() {
    window.capsule.ready(Math.round(performance.now() - start), window.__capsuleCapabilities || []);
  });
})();`

	bootstrapWorkerEdge = `(function(){
  'use strict';
  var start = performance.now();
  window.__capsuleEdge = { script: window.__capsuleWorkerScript || 'worker.js' };
  window.addEventListener('capsule:edge-attached', function() {
    window.capsule.ready(Math.round(performance.now() - start), window.__capsuleCapabilities || []);
  });
})();`
)

// bootstrapFor maps a runner to its bootstrap script. The switch is
// exhaustive: an unknown runner is a build error, not a silent default.
func bootstrapFor(runner manifest.Runner) (string, error) {
	switch runner {
	case manifest.RunnerClientStatic:
		return bootstrapClientStatic, nil
	case manifest.RunnerWebContainer:
		return bootstrapWebContainer, nil
	case manifest.RunnerWorkerEdge:
		return bootstrapWorkerEdge, nil
	default:
		return "", fmt.Errorf("no bootstrap for runner %q", runner)
	}
}
