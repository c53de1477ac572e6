package dashboard

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// frontend serves PUBLIC_DIR when it exists, otherwise the built-in page.
func (d *Dashboard) frontend() http.Handler {
	if d.publicDir != "" {
		if st, err := os.Stat(filepath.Join(d.publicDir, "index.html")); err == nil && !st.IsDir() {
			return http.FileServer(http.Dir(d.publicDir))
		}
		log.Warn().Str("dir", d.publicDir).Msg("public dir has no index.html, serving built-in page")
	}
	return http.HandlerFunc(serveBuiltin)
}

func serveBuiltin(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/index.html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(frontendHTML))
	case "/app.js":
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Write([]byte(frontendJS))
	default:
		http.NotFound(w, r)
	}
}

const frontendHTML = `<!DOCTYPE html>
<html lang="en"><head>
<meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>Orion Peep Show</title>
<style>
:root{--bg:#08090d;--sf:#0f1118;--sf2:#161923;--bd:#252a3a;--tx:#c8cdd8;--tx2:#8891a5;--tx3:#5a6278;--ac:#3b82f6;--gn:#10b981;--rd:#ef4444;--pr:#a855f7}
*{margin:0;padding:0;box-sizing:border-box}
body{font-family:ui-monospace,'JetBrains Mono',monospace;background:var(--bg);color:var(--tx);min-height:100vh}
.app{max-width:1100px;margin:0 auto;padding:20px 24px}
.hdr{display:flex;justify-content:space-between;align-items:center;padding:16px 0;border-bottom:1px solid var(--bd);margin-bottom:24px}
.hdr h1{font-size:22px;font-weight:700;background:linear-gradient(135deg,var(--ac),var(--pr));-webkit-background-clip:text;-webkit-text-fill-color:transparent}
.price{font-size:11px;color:var(--tx2)}
form{display:flex;gap:8px;margin-bottom:20px}
input{flex:1;font:inherit;font-size:13px;padding:10px 12px;background:var(--sf);border:1px solid var(--bd);border-radius:8px;color:var(--tx)}
button{font:inherit;font-size:12px;padding:10px 18px;border:none;border-radius:8px;background:var(--ac);color:#fff;cursor:pointer}
.pn{background:var(--sf);border:1px solid var(--bd);border-radius:12px;margin-bottom:18px;overflow:hidden}
.pn-h{padding:12px 18px;border-bottom:1px solid var(--bd);background:var(--sf2);font-size:13px;font-weight:600}
.pn-b{padding:14px 18px;font-size:12px}
.grid{display:grid;grid-template-columns:1fr 1fr;gap:18px}
table{width:100%;border-collapse:collapse}
th{text-align:left;font-size:9px;color:var(--tx3);text-transform:uppercase;letter-spacing:.8px;padding:8px 10px;border-bottom:1px solid var(--bd)}
td{padding:8px 10px;border-bottom:1px solid rgba(37,42,58,.4);font-size:12px}
pre{white-space:pre-wrap;word-break:break-all;color:var(--tx2)}
.err{color:var(--rd)}.ok{color:var(--gn)}
</style>
</head><body><div class="app">
<div class="hdr"><h1>Orion Peep Show</h1><span class="price" id="price">WPLS …</span></div>
<form id="lookup"><input id="addr" placeholder="0x… wallet or token address" autocomplete="off"><button>Peep</button></form>
<div class="pn"><div class="pn-h">Result</div><div class="pn-b"><pre id="result">Paste an address above.</pre></div></div>
<div class="grid">
<div class="pn"><div class="pn-h">Trending wallets</div><div class="pn-b"><table id="tw"></table></div></div>
<div class="pn"><div class="pn-h">Trending tokens</div><div class="pn-b"><table id="tt"></table></div></div>
</div>
<div class="pn"><div class="pn-h">Recent activity</div><div class="pn-b"><table id="feed"></table></div></div>
</div><script src="/app.js"></script></body></html>`

const frontendJS = `"use strict";
const $ = (id) => document.getElementById(id);
const short = (a) => a.slice(0, 6) + "…" + a.slice(-4);

function rows(el, items, cols) {
  el.replaceChildren();
  for (const it of items) {
    const tr = document.createElement("tr");
    for (const c of cols) {
      const td = document.createElement("td");
      td.textContent = c(it);
      tr.appendChild(td);
    }
    el.appendChild(tr);
  }
}

async function refresh() {
  const [tr, feed, price] = await Promise.all([
    fetch("/api/trending?limit=10").then((r) => r.json()),
    fetch("/api/feed?limit=20").then((r) => r.json()),
    fetch("/api/price").then((r) => r.json()),
  ]);
  rows($("tw"), tr.wallets, [(i) => short(i.address), (i) => i.count]);
  rows($("tt"), tr.tokens, [(i) => i.symbol || short(i.address), (i) => i.count]);
  rows($("feed"), feed.items, [(i) => new Date(i.at).toLocaleTimeString(), (i) => i.type, (i) => i.symbol || short(i.address)]);
  $("price").textContent = "WPLS $" + price.wplsUsd + " (" + price.from + ")";
}

$("lookup").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const addr = $("addr").value.trim();
  const out = $("result");
  out.className = "";
  out.textContent = "…";
  const res = await fetch("/api/explorer/addresses/" + encodeURIComponent(addr));
  const body = await res.json();
  out.textContent = JSON.stringify(body, null, 2);
  out.className = res.ok ? "ok" : "err";
  if (!res.ok) return;
  const tok = body.token || {};
  await fetch("/api/record", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({
      address: body.hash,
      type: body.kind,
      symbol: tok.symbol || undefined,
      name: tok.name || undefined,
      icon: tok.iconUrl || undefined,
      holders: tok.holdersCount ?? undefined,
      market: tok.market || undefined,
    }),
  });
  refresh();
});

refresh();
setInterval(refresh, 30000);
`
