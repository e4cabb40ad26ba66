package capability

// ProbeScript is the self-check source executed inside the sandboxed
// execution context. Every probe is individually guarded: a throwing
// platform API marks that capability unavailable instead of killing the
// check. The script evaluates to a JSON string matching Report.
//
// A readable parent origin is reported as a warning rather than a
// capability: it means the isolation boundary is weaker than intended.
func ProbeScript() string {
	return probeSource
}

const probeSource = `
(function () {
  var available = [];
  var unavailable = [];
  var warnings = [];

  function probe(name, fn) {
    try {
      if (fn()) { available.push(name); } else { unavailable.push(name); }
    } catch (e) {
      unavailable.push(name);
    }
  }

  probe("storage", function () {
    if (typeof localStorage === "undefined" || localStorage === null) return false;
    var key = "__capsule_probe__";
    localStorage.setItem(key, "1");
    var ok = localStorage.getItem(key) === "1";
    localStorage.removeItem(key);
    return ok;
  });

  probe("cookies", function () {
    if (typeof document === "undefined" || typeof document.cookie !== "string") return false;
    document.cookie = "__capsule_probe__=1";
    var ok = document.cookie.indexOf("__capsule_probe__") !== -1;
    document.cookie = "__capsule_probe__=; expires=Thu, 01 Jan 1970 00:00:00 GMT";
    return ok;
  });

  probe("parent-context", function () {
    return typeof window !== "undefined" && window.parent && window.parent !== window;
  });

  probe("network-fetch", function () {
    return typeof fetch === "function";
  });

  probe("parent-origin-read", function () {
    if (typeof window === "undefined" || !window.parent || window.parent === window) return false;
    var origin = window.parent.location.origin;
    if (origin) {
      warnings.push("parent origin is readable from the sandbox: isolation is weaker than intended");
      return true;
    }
    return false;
  });

  probe("animation-frame", function () {
    return typeof requestAnimationFrame === "function";
  });

  probe("canvas-2d", function () {
    if (typeof document === "undefined" || typeof document.createElement !== "function") return false;
    var canvas = document.createElement("canvas");
    return !!(canvas.getContext && canvas.getContext("2d"));
  });

  probe("webgl", function () {
    if (typeof document === "undefined" || typeof document.createElement !== "function") return false;
    var canvas = document.createElement("canvas");
    return !!(canvas.getContext && (canvas.getContext("webgl") || canvas.getContext("experimental-webgl")));
  });

  return JSON.stringify({
    available: available,
    unavailable: unavailable,
    warnings: warnings
  });
})()
`
