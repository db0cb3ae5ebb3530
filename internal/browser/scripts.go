package browser

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Attribute names shared between the page scripts and the Go mirror.
const (
	NodeIDAttr  = "data-sf-id"
	VisibleAttr = "data-sf-visible"
	OverlayAttr = "data-smartfill-overlay"
)

// snapshotScript tags every form control with a stable id, records the
// live state the markup does not carry, and returns the serialized page
// without our own overlays.
const snapshotScript = `(() => {
  const ID = "data-sf-id", VIS = "data-sf-visible";
  window.__smartfillNext = window.__smartfillNext || 1;
  const sel = "input, select, textarea, button";
  const live = Array.from(document.querySelectorAll(sel));
  for (const el of live) {
    if (!el.hasAttribute(ID)) el.setAttribute(ID, String(window.__smartfillNext++));
  }
  const clone = document.documentElement.cloneNode(true);
  const copies = Array.from(clone.querySelectorAll(sel));
  live.forEach((el, i) => {
    const c = copies[i];
    if (!c) return;
    const style = window.getComputedStyle(el);
    const rect = el.getBoundingClientRect();
    const visible = rect.width > 0 && rect.height > 0 &&
      style.display !== "none" && style.visibility !== "hidden" && style.opacity !== "0";
    c.setAttribute(VIS, visible ? "true" : "false");
    const tag = el.tagName.toLowerCase();
    if (tag === "textarea") {
      c.textContent = el.value;
    } else if (tag === "select") {
      Array.from(el.options).forEach((o, j) => {
        if (o.selected) c.options[j].setAttribute("selected", "");
        else c.options[j].removeAttribute("selected");
      });
    } else if (tag === "input") {
      if (el.type === "checkbox" || el.type === "radio") {
        if (el.checked) c.setAttribute("checked", "");
        else c.removeAttribute("checked");
      } else if (el.type !== "file") {
        c.setAttribute("value", el.value);
      }
    }
  });
  clone.querySelectorAll("[data-smartfill-overlay]").forEach((n) => n.remove());
  return "<!DOCTYPE html>" + clone.outerHTML;
})()`

// findFn resolves a tagged control or throws.
const findFn = `function(id) {
  const el = document.querySelector('[data-sf-id="' + id + '"]');
  if (!el) throw new Error("element " + id + " is no longer in the page");
  return el;
}`

const setValueFn = `function(id, value) {
  const el = (` + findFn + `)(id);
  const proto = el.tagName === "TEXTAREA" ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
  const setter = Object.getOwnPropertyDescriptor(proto, "value").set;
  setter.call(el, value);
  return true;
}`

const setCheckedFn = `function(id, checked) {
  const el = (` + findFn + `)(id);
  el.checked = checked;
  return true;
}`

const selectIndexFn = `function(id, index) {
  const el = (` + findFn + `)(id);
  if (index < 0 || index >= el.options.length) throw new Error("option index out of range");
  el.selectedIndex = index;
  return true;
}`

const dispatchFn = `function(id, type) {
  const el = (` + findFn + `)(id);
  el.dispatchEvent(new Event(type, { bubbles: true }));
  return true;
}`

const highlightFn = `function(id, message, ms) {
  const el = (` + findFn + `)(id);
  const border = el.style.border, shadow = el.style.boxShadow;
  el.style.border = "2px solid #FF9800";
  el.style.boxShadow = "0 0 10px rgba(255, 152, 0, 0.5)";
  const note = document.createElement("div");
  note.setAttribute("data-smartfill-overlay", "highlight");
  note.textContent = message;
  note.style.cssText = "color:#FF9800;font-size:12px;margin-top:5px;font-weight:bold;";
  el.parentNode.insertBefore(note, el.nextSibling);
  setTimeout(() => {
    el.style.border = border;
    el.style.boxShadow = shadow;
    note.remove();
  }, ms);
  return true;
}`

const notifyFn = `function(message, ms) {
  const note = document.createElement("div");
  note.setAttribute("data-smartfill-overlay", "notification");
  note.setAttribute("role", "status");
  note.textContent = message;
  note.style.cssText = "position:fixed;bottom:20px;right:20px;background:#4285f4;color:white;" +
    "padding:10px 20px;border-radius:5px;box-shadow:0 2px 10px rgba(0,0,0,0.2);z-index:10000;font-family:Arial,sans-serif;";
  document.body.appendChild(note);
  setTimeout(() => note.remove(), ms);
  return true;
}`

// ensureControlFn inserts the floating trigger button once. Clicking it
// calls the named runtime binding when present.
const ensureControlFn = `function(id, label, binding) {
  if (document.getElementById(id)) return false;
  if (!document.body) return false;
  const btn = document.createElement("button");
  btn.id = id;
  btn.type = "button";
  btn.textContent = label;
  btn.style.cssText = "position:fixed;bottom:20px;right:20px;z-index:10000;padding:10px 15px;" +
    "background-color:#4285f4;color:white;border:none;border-radius:5px;cursor:pointer;" +
    "font-weight:bold;box-shadow:0 2px 5px rgba(0,0,0,0.2);";
  btn.addEventListener("click", (e) => {
    e.preventDefault();
    e.stopPropagation();
    if (typeof window[binding] === "function") window[binding](JSON.stringify({ action: "fillForm" }));
  });
  document.body.appendChild(btn);
  return true;
}`

// persistentControlScript re-creates the button on every new document.
func persistentControlScript(id, label, binding string) (string, error) {
	call, err := callScript(ensureControlFn, id, label, binding)
	if err != nil {
		return "", err
	}
	return `document.addEventListener("DOMContentLoaded", () => { ` + call + `; });`, nil
}

// callScript renders an immediately invoked call of fn with JSON-encoded arguments.
func callScript(fn string, args ...interface{}) (string, error) {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("failed to encode script argument: %w", err)
		}
		encoded = append(encoded, string(b))
	}
	return fmt.Sprintf("(%s)(%s)", fn, strings.Join(encoded, ", ")), nil
}
