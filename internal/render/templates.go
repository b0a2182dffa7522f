package render

const tablesHTML = `{{range .}}{{$table := .}}<div class="col-lg-3 col-md-4 col-sm-6 mb-4">
  <div class="card h-100">
    <div class="card-header bg-primary text-white">
      <h5 class="mb-0">{{.Name}}</h5>
    </div>
    <div class="card-body p-0">
      <div class="list-group list-group-flush">
{{- range .TimeSlots}}
        <div class="list-group-item {{rowClass .Status}}">
          <div class="d-flex justify-content-between align-items-center">
            <small>{{.Time}}</small>
            <select class="form-select form-select-sm slot-status" data-table-id="{{$table.ID}}" data-time-slot="{{.Time}}">
              <option value="available"{{if eq .Status "available"}} selected{{end}}>Available</option>
              <option value="walk-in"{{if eq .Status "walk-in"}} selected{{end}}>Walk-in</option>
              <option value="phone-call"{{if eq .Status "phone-call"}} selected{{end}}>Phone Call</option>
            </select>
          </div>
{{- if and .Status.Booked .CustomerName}}
          <div class="d-flex justify-content-between align-items-center mt-1">
            <small class="text-muted">{{caption .Status}}</small>
            <small class="text-muted">{{.CustomerName}} ({{.Pax}} pax)</small>
          </div>
{{- end}}
        </div>
{{- end}}
      </div>
    </div>
  </div>
</div>
{{end}}`

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css" rel="stylesheet">
<style>
.slot-status{width:120px}
.clock{font-variant-numeric:tabular-nums}
</style>
</head>
<body class="bg-light">
<nav class="navbar navbar-dark bg-dark mb-4">
  <div class="container-fluid">
    <span class="navbar-brand">{{.Title}}</span>
    <div class="text-white text-end">
      <div id="current-time" class="clock fs-5">{{.Clock.Time}}</div>
      <div id="current-date" class="small">{{.Clock.Date}}</div>
    </div>
  </div>
</nav>
<div class="container-fluid">
  <div id="tables-container" class="row">
{{template "tables" .Tables}}
  </div>
</div>
{{if .Live}}<script>
(function () {
  var container = document.getElementById('tables-container');
  var timeEl = document.getElementById('current-time');
  var dateEl = document.getElementById('current-date');

  function connect() {
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(proto + location.host + '/ws');
    ws.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      if (msg.event === 'board') {
        container.innerHTML = msg.data.html;
      } else if (msg.event === 'clock') {
        timeEl.textContent = msg.data.time;
        dateEl.textContent = msg.data.date;
      }
    };
    ws.onclose = function () { setTimeout(connect, 2000); };
  }

  container.addEventListener('change', function (ev) {
    var select = ev.target;
    if (!select.classList.contains('slot-status')) {
      return;
    }
    fetch('/api/tables/' + encodeURIComponent(select.dataset.tableId) + '/slots', {
      method: 'PUT',
      headers: {'Content-Type': 'application/json'},
      body: JSON.stringify({time_slot: select.dataset.timeSlot, status: select.value})
    }).then(function (resp) {
      if (resp.status === 400 || resp.status === 404) {
        alert('Failed to update reservation');
      }
    }).catch(function (err) {
      console.error('Error updating reservation:', err);
    });
  });

  connect();
})();
</script>{{end}}
</body>
</html>
`
