package browser

import (
	"fmt"

	"github.com/Sangdi-IT/yq-monitor/internal/infrastructure/config"
)

// DOM snippets evaluated in the page. Selectors are embedded as JSON string literals.

func coversScript(sel config.Selectors) string {
	return fmt.Sprintf(`(() => {
  const out = [];
  for (const cover of document.querySelectorAll(%s)) {
    const item = cover.closest(%s);
    out.push({
      id: item ? (item.getAttribute(%s) ?? "") : "",
      inItem: !!item,
      visible: window.getComputedStyle(cover).display !== "none",
    });
  }
  return out;
})()`, jsString(sel.Cover), jsString(sel.Item), jsString(sel.IndexAttr))
}

func activateScript(sel config.Selectors, id string) string {
	return fmt.Sprintf(`(() => {
  for (const cover of document.querySelectorAll(%s)) {
    const item = cover.closest(%s);
    if (item && (item.getAttribute(%s) ?? "") === %s) {
      cover.click();
      return true;
    }
  }
  return false;
})()`, jsString(sel.Cover), jsString(sel.Item), jsString(sel.IndexAttr), jsString(id))
}

func existsScript(selector string) string {
	return fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
}

func clickScript(selector string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return false;
  el.click();
  return true;
})()`, jsString(selector))
}

// observerScript watches the feed container for new items. The callback is a
// placeholder; the loop rescans on its own schedule.
func observerScript(sel config.Selectors) string {
	return fmt.Sprintf(`(() => {
  const container = document.querySelector(%s);
  if (!container || window.__yqFeedObserver) return false;
  const attr = %s;
  const observer = new MutationObserver((mutations) => {
    for (const m of mutations) {
      if (m.type === "childList" || (m.type === "attributes" && m.attributeName === attr)) {
        // new feed items rendered
      }
    }
  });
  observer.observe(container, { childList: true, subtree: true, attributes: true, attributeFilter: [attr] });
  window.__yqFeedObserver = observer;
  return true;
})()`, jsString(sel.FeedContainer), jsString(sel.IndexAttr))
}
