package web

import (
	"encoding/json"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	layout := s.layout()
	layoutJSON, err := json.Marshal(layout)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = indexTmpl.Execute(w, struct {
		Layout
		LayoutJSON template.JS
	}{layout, template.JS(layoutJSON)})
	if err != nil {
		s.log.Error("render index", zap.Error(err))
	}
}

// The two range inputs stand in for a dual-handle slider: moving one handle
// past the other drags it along, so low <= high always holds.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <script src="https://cdn.jsdelivr.net/npm/echarts@5/dist/echarts.min.js"></script>
    <style>
        * { box-sizing: border-box; }
        body {
            font-family: 'Helvetica Neue', Arial, sans-serif;
            margin: 0;
            padding: 20px;
            background: #fafafa;
            color: #333;
        }
        h1 { text-align: center; margin: 0 0 20px 0; }
        .row { display: flex; gap: 20px; flex-wrap: wrap; margin-bottom: 20px; }
        .six.columns { flex: 1 1 480px; min-width: 0; }
        .panel {
            background: #fff;
            border: 1px solid #ddd;
            border-radius: 4px;
            padding: 15px;
        }
        select {
            width: 100%;
            padding: 8px 12px;
            font-size: 14px;
        }
        .slider { position: relative; height: 36px; }
        .slider input[type="range"] {
            position: absolute;
            width: 100%;
            pointer-events: none;
            background: none;
            -webkit-appearance: none;
        }
        .slider input[type="range"]::-webkit-slider-thumb { pointer-events: all; }
        .slider input[type="range"]::-moz-range-thumb { pointer-events: all; }
        .marks {
            display: flex;
            justify-content: space-between;
            font-size: 11px;
            color: #888;
        }
        .range-value { font-size: 13px; margin-top: 8px; }
        .chart { height: 450px; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>

    <div class="row">
        <div class="six columns panel">
            <select id="{{.Dropdown.ID}}" title="{{.Dropdown.Placeholder}}">
                {{range .Dropdown.Options}}<option value="{{.Value}}"{{if eq .Value $.Dropdown.Value}} selected{{end}}>{{.Label}}</option>
                {{end}}
            </select>
        </div>
        <div class="six columns panel">
            <div class="slider" id="{{.Slider.ID}}">
                <input type="range" id="payload-low" min="{{.Slider.Min}}" max="{{.Slider.Max}}" step="1" value="{{index .Slider.Value 0}}">
                <input type="range" id="payload-high" min="{{.Slider.Min}}" max="{{.Slider.Max}}" step="1" value="{{index .Slider.Value 1}}">
            </div>
            <div class="marks">{{range .Slider.Marks}}<span>{{.}}</span>{{end}}</div>
            <div class="range-value">Payload range (kg): <span id="range-label"></span></div>
        </div>
    </div>

    <div class="row">
        <div class="six columns panel"><div id="success-pie-chart" class="chart"></div></div>
        <div class="six columns panel"><div id="success-payload-scatter-chart" class="chart"></div></div>
    </div>

    <script>
        const layout = {{.LayoutJSON}};
        const siteInput = layout.dropdown.id + '.value';
        const sliderInput = layout.slider.id + '.value';

        const figures = {};
        for (const cb of layout.callbacks) {
            figures[cb.output.id + '.' + cb.output.property] = echarts.init(document.getElementById(cb.output.id));
        }

        const dropdown = document.getElementById(layout.dropdown.id);
        const low = document.getElementById('payload-low');
        const high = document.getElementById('payload-high');
        const rangeLabel = document.getElementById('range-label');

        function inputs() {
            return {
                [siteInput]: dropdown.value,
                [sliderInput]: [Number(low.value), Number(high.value)],
            };
        }

        // Out-of-order responses are not cancelled; the last one to arrive wins.
        async function update(changed) {
            const resp = await fetch('/_dash-update', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ changed: changed, inputs: inputs() }),
            });
            if (!resp.ok) {
                console.error('update failed', resp.status, await resp.text());
                return;
            }
            const body = await resp.json();
            for (const [output, option] of Object.entries(body.outputs)) {
                const fig = figures[output];
                if (!fig) continue;
                fig.setOption(option, true);
            }
        }

        function snap(v) {
            const step = layout.slider.step;
            return Math.round((v - layout.slider.min) / step) * step + layout.slider.min;
        }

        function onSlide(moved) {
            let lo = snap(Number(low.value));
            let hi = snap(Number(high.value));
            if (lo > hi) {
                if (moved === low) hi = lo; else lo = hi;
            }
            low.value = lo;
            high.value = hi;
            rangeLabel.textContent = lo + ' - ' + hi;
            update([sliderInput]);
        }

        dropdown.addEventListener('change', () => update([siteInput]));
        low.addEventListener('change', () => onSlide(low));
        high.addEventListener('change', () => onSlide(high));
        window.addEventListener('resize', () => Object.values(figures).forEach(f => f.resize()));

        rangeLabel.textContent = low.value + ' - ' + high.value;
        update([]);
    </script>
</body>
</html>`
