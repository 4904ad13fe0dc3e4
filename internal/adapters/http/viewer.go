package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mhollberg/strata/internal/domain"
)

// viewerHTML is the embedded HTML for the map viewer. Leaflet is loaded
// from its CDN build; the initial view settings are injected at serve time.
const viewerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Strata - GeoJSON Layer Viewer</title>
    <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
    <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
    <style>
        :root {
            --primary: #2563eb;
            --primary-dark: #1d4ed8;
            --success: #16a34a;
            --error: #dc2626;
            --bg: #f8fafc;
            --card: #ffffff;
            --text: #1e293b;
            --text-muted: #64748b;
            --border: #e2e8f0;
            --radius: 8px;
            --shadow: 0 1px 3px rgba(0,0,0,0.1);
        }

        * {
            box-sizing: border-box;
            margin: 0;
            padding: 0;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg);
            color: var(--text);
            height: 100vh;
            display: flex;
            flex-direction: column;
        }

        header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            padding: 0.75rem 1rem;
            background: var(--card);
            border-bottom: 1px solid var(--border);
            box-shadow: var(--shadow);
            z-index: 1001;
        }

        header h1 {
            font-size: 1.125rem;
            font-weight: 600;
            color: var(--primary);
        }

        header nav {
            font-size: 0.75rem;
        }

        header nav a {
            color: var(--text-muted);
            text-decoration: none;
            margin-left: 0.75rem;
        }

        header nav a:hover {
            color: var(--primary);
        }

        main {
            display: flex;
            flex: 1;
            min-height: 0;
        }

        #map {
            flex: 1;
        }

        aside {
            width: 300px;
            background: var(--card);
            border-left: 1px solid var(--border);
            overflow-y: auto;
            padding: 1rem;
        }

        .section-title {
            font-size: 0.75rem;
            font-weight: 600;
            color: var(--text-muted);
            text-transform: uppercase;
            letter-spacing: 0.05em;
            margin-bottom: 0.5rem;
        }

        .section {
            margin-bottom: 1.25rem;
        }

        select, input[type="text"] {
            width: 100%;
            padding: 0.5rem;
            font-size: 0.875rem;
            border: 1px solid var(--border);
            border-radius: var(--radius);
            background: var(--card);
            color: var(--text);
        }

        select:focus, input:focus {
            outline: none;
            border-color: var(--primary);
        }

        .layer-item {
            display: flex;
            justify-content: space-between;
            align-items: center;
            padding: 0.5rem;
            border: 1px solid var(--border);
            border-radius: var(--radius);
            margin-bottom: 0.375rem;
            cursor: pointer;
            font-size: 0.875rem;
        }

        .layer-item:hover {
            background: var(--bg);
        }

        .layer-item.active {
            border-color: var(--primary);
            background: #eff6ff;
        }

        .layer-name {
            overflow: hidden;
            text-overflow: ellipsis;
            white-space: nowrap;
        }

        .layer-delete {
            background: none;
            border: none;
            color: var(--text-muted);
            cursor: pointer;
            font-size: 1rem;
            padding: 0 0.25rem;
        }

        .layer-delete:hover {
            color: var(--error);
        }

        .btn {
            width: 100%;
            padding: 0.5rem;
            font-size: 0.875rem;
            font-weight: 500;
            color: white;
            background: var(--primary);
            border: none;
            border-radius: var(--radius);
            cursor: pointer;
            margin-top: 0.5rem;
        }

        .btn:hover {
            background: var(--primary-dark);
        }

        .btn:disabled {
            background: var(--text-muted);
            cursor: not-allowed;
        }

        .form-group {
            margin-bottom: 0.5rem;
        }

        .form-group label {
            display: block;
            font-size: 0.75rem;
            margin-bottom: 0.25rem;
            color: var(--text-muted);
        }

        .status {
            font-size: 0.75rem;
            padding: 0.5rem;
            border-radius: var(--radius);
            margin-top: 0.5rem;
            display: none;
        }

        .status.active {
            display: block;
        }

        .status.ok {
            background: #dcfce7;
            color: var(--success);
        }

        .status.err {
            background: #fef2f2;
            color: var(--error);
        }

        .empty {
            font-size: 0.8125rem;
            color: var(--text-muted);
            padding: 0.5rem 0;
        }

        @media (max-width: 640px) {
            main {
                flex-direction: column;
            }

            aside {
                width: 100%;
                border-left: none;
                border-top: 1px solid var(--border);
                max-height: 40vh;
            }
        }
    </style>
</head>
<body>
    <header>
        <h1>Strata</h1>
        <nav>
            <a href="/docs">API Docs</a>
            <a href="/openapi.json">OpenAPI</a>
            <a href="/health">Health</a>
        </nav>
    </header>

    <main>
        <div id="map"></div>
        <aside>
            <div class="section">
                <div class="section-title">Base Layer</div>
                <select id="baseLayer"></select>
            </div>

            <div class="section">
                <div class="section-title">Layers</div>
                <div id="layerList"><div class="empty">Loading...</div></div>
            </div>

            <div class="section">
                <div class="section-title">Upload</div>
                <form id="uploadForm">
                    <div class="form-group">
                        <label for="uploadName">Name</label>
                        <input type="text" id="uploadName" required>
                    </div>
                    <div class="form-group">
                        <label for="uploadFile">GeoJSON file</label>
                        <input type="file" id="uploadFile" accept=".geojson,.json,application/geo+json" required>
                    </div>
                    <button type="submit" class="btn" id="uploadBtn">Upload</button>
                </form>
                <div class="status" id="status"></div>
            </div>
        </aside>
    </main>

    <script>
        (function() {
            const initial = __INITIAL_VIEW__;

            const map = L.map('map').setView(initial.center, initial.zoom);

            const baseSelect = document.getElementById('baseLayer');
            const layerList = document.getElementById('layerList');
            const uploadForm = document.getElementById('uploadForm');
            const uploadName = document.getElementById('uploadName');
            const uploadFile = document.getElementById('uploadFile');
            const uploadBtn = document.getElementById('uploadBtn');
            const status = document.getElementById('status');

            let baseLayer = null;
            let overlay = null;
            let activeID = null;
            let providers = {};

            function showStatus(message, ok) {
                status.textContent = message;
                status.className = 'status active ' + (ok ? 'ok' : 'err');
                setTimeout(function() { status.className = 'status'; }, 5000);
            }

            function setBaseLayer(id) {
                const p = providers[id];
                if (!p) return;
                if (baseLayer) map.removeLayer(baseLayer);
                baseLayer = L.tileLayer(p.url, {
                    attribution: p.attribution,
                    maxZoom: p.maxZoom || 19
                }).addTo(map);
            }

            async function loadProviders() {
                const res = await fetch('/api/v1/tiles');
                const data = await res.json();
                baseSelect.innerHTML = '';
                data.providers.forEach(function(p) {
                    providers[p.id] = p;
                    const opt = document.createElement('option');
                    opt.value = p.id;
                    opt.textContent = p.id;
                    if (p.id === data['default']) opt.selected = true;
                    baseSelect.appendChild(opt);
                });
                setBaseLayer(baseSelect.value);
            }

            baseSelect.addEventListener('change', function() {
                setBaseLayer(this.value);
            });

            async function loadLayers() {
                const res = await fetch('/layers');
                const data = await res.json();
                const records = data.geo || [];
                layerList.innerHTML = '';
                if (records.length === 0) {
                    layerList.innerHTML = '<div class="empty">No layers yet.</div>';
                    return;
                }
                records.forEach(function(rec) {
                    const item = document.createElement('div');
                    item.className = 'layer-item' + (rec._id === activeID ? ' active' : '');
                    const name = document.createElement('span');
                    name.className = 'layer-name';
                    name.textContent = rec.name;
                    name.title = rec.filename;
                    const del = document.createElement('button');
                    del.className = 'layer-delete';
                    del.textContent = '×';
                    del.title = 'Delete layer';
                    del.addEventListener('click', function(e) {
                        e.stopPropagation();
                        deleteLayer(rec);
                    });
                    item.appendChild(name);
                    item.appendChild(del);
                    item.addEventListener('click', function() {
                        selectLayer(rec);
                    });
                    layerList.appendChild(item);
                });
            }

            async function selectLayer(rec) {
                activeID = rec._id;
                loadLayers();
                try {
                    const res = await fetch('/data/geojson/' + encodeURIComponent(rec.filename));
                    if (!res.ok) throw new Error('Failed to fetch layer payload');
                    const geojson = await res.json();
                    if (overlay) map.removeLayer(overlay);
                    overlay = L.geoJSON(geojson, {
                        onEachFeature: function(feature, layer) {
                            const props = feature.properties || {};
                            const keys = rec.properties && rec.properties.length > 0
                                ? rec.properties : Object.keys(props);
                            let html = '';
                            keys.forEach(function(k) {
                                if (props[k] !== undefined) {
                                    html += '<strong>' + k + ':</strong> ' + props[k] + '<br>';
                                }
                            });
                            if (html) layer.bindPopup(html);
                        }
                    }).addTo(map);
                    const bounds = overlay.getBounds();
                    if (bounds.isValid()) {
                        map.fitBounds(bounds);
                    } else {
                        map.setView(initial.fallback, initial.zoom);
                    }
                } catch (err) {
                    showStatus(err.message, false);
                }
            }

            async function deleteLayer(rec) {
                if (!confirm('Delete layer "' + rec.name + '"?')) return;
                try {
                    const res = await fetch('/layers', {
                        method: 'DELETE',
                        headers: {'Content-Type': 'application/json'},
                        body: JSON.stringify({id: rec._id})
                    });
                    const data = await res.json();
                    if (!res.ok) throw new Error(data.message || 'Delete failed');
                    if (rec._id === activeID && overlay) {
                        map.removeLayer(overlay);
                        overlay = null;
                        activeID = null;
                    }
                    showStatus(data.message, true);
                    loadLayers();
                } catch (err) {
                    showStatus(err.message, false);
                }
            }

            uploadForm.addEventListener('submit', function(e) {
                e.preventDefault();
                const file = uploadFile.files[0];
                if (!file) return;

                const reader = new FileReader();
                reader.onload = async function() {
                    let content;
                    try {
                        content = JSON.parse(reader.result);
                    } catch (parseErr) {
                        showStatus('File is not valid JSON', false);
                        return;
                    }

                    uploadBtn.disabled = true;
                    try {
                        const res = await fetch('/layers', {
                            method: 'POST',
                            headers: {'Content-Type': 'application/json'},
                            body: JSON.stringify({
                                name: uploadName.value,
                                filename: file.name,
                                properties: [],
                                geojsonContent: content
                            })
                        });
                        const data = await res.json();
                        if (!res.ok) throw new Error(data.message || 'Upload failed');
                        showStatus(data.warning ? data.message + ' (' + data.warning + ')' : data.message, true);
                        uploadForm.reset();
                        loadLayers();
                    } catch (err) {
                        showStatus(err.message, false);
                    } finally {
                        uploadBtn.disabled = false;
                    }
                };
                reader.readAsText(file);
            });

            loadProviders();
            loadLayers();
        })();
    </script>
</body>
</html>`

// swaggerUIHTML is a minimal Swagger UI shell pointing at the served spec.
const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Strata API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: '/openapi.json',
                dom_id: '#swagger-ui',
                presets: [SwaggerUIBundle.presets.apis],
                layout: 'BaseLayout'
            });
        };
    </script>
</body>
</html>`

// handleViewer serves the embedded map viewer with the configured
// initial view injected.
func (s *Server) handleViewer(w http.ResponseWriter, _ *http.Request) {
	initial, err := json.Marshal(map[string]interface{}{
		"center":   []float64{s.viewer.CenterLat, s.viewer.CenterLng},
		"fallback": []float64{domain.FallbackCenter.Lat, domain.FallbackCenter.Lng},
		"zoom":     s.viewer.Zoom,
		"base":     s.viewer.BaseLayer,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to render viewer")
		return
	}

	page := strings.Replace(viewerHTML, "__INITIAL_VIEW__", string(initial), 1)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

// handleSwaggerUI serves the Swagger UI page.
func (s *Server) handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(swaggerUIHTML))
}
