package systemd

// ServiceTemplate returns the hardened systemd unit for the clawgate
// daemon.
func ServiceTemplate() string {
	return `[Unit]
Description=Clawgate privileged action gateway
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=/usr/local/bin/clawgate serve --config /etc/clawgate/config.yaml
Restart=on-failure
RestartSec=2
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ProtectHome=true
ReadWritePaths=/var/lib/clawgate
StateDirectory=clawgate

[Install]
WantedBy=multi-user.target
`
}

// HardeningDirectives are the Service directives the installed unit
// must carry with exactly these values.
var HardeningDirectives = map[string]string{
	"NoNewPrivileges": "true",
	"PrivateTmp":      "true",
	"ProtectSystem":   "strict",
	"ProtectHome":     "true",
}
