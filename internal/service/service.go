package service

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const (
	launchdLabel = "com.kayz.dogcmd"
	systemdUnit  = "dogcmd"
	logPath      = "/var/log/dogcmd.log"
)

// DefaultArgs runs the router server.
var DefaultArgs = []string{"serve"}

// Paths returns the installed binary and service definition paths.
func Paths() (binaryPath, configPath string, err error) {
	switch runtime.GOOS {
	case "darwin":
		return "/Library/PrivilegedHelperTools/" + launchdLabel,
			"/Library/LaunchDaemons/" + launchdLabel + ".plist", nil
	case "linux":
		return "/usr/local/bin/dogcmd",
			"/etc/systemd/system/" + systemdUnit + ".service", nil
	default:
		return "", "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsInstalled reports whether the binary and service definition exist.
func IsInstalled() bool {
	binaryPath, configPath, err := Paths()
	if err != nil {
		return false
	}
	if _, err := os.Stat(configPath); err != nil {
		return false
	}
	_, err = os.Stat(binaryPath)
	return err == nil
}

// IsRunning asks the service manager whether the service is active.
func IsRunning() bool {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("launchctl", "list", launchdLabel).Run() == nil
	case "linux":
		return exec.Command("systemctl", "is-active", "--quiet", systemdUnit).Run() == nil
	default:
		return false
	}
}

// Install copies sourceBinary into place and registers a service that runs
// it with args (DefaultArgs when empty).
func Install(sourceBinary string, args []string) error {
	if len(args) == 0 {
		args = DefaultArgs
	}
	binaryPath, configPath, err := Paths()
	if err != nil {
		return err
	}

	if err := copyBinary(sourceBinary, binaryPath); err != nil {
		return fmt.Errorf("failed to copy binary: %w", err)
	}
	if err := writeServiceConfig(configPath, binaryPath, args); err != nil {
		return fmt.Errorf("failed to create service config: %w", err)
	}
	if err := enable(configPath); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}
	return nil
}

// Uninstall stops the service and removes its files.
func Uninstall() error {
	_ = Stop()

	binaryPath, configPath, err := Paths()
	if err != nil {
		return err
	}
	switch runtime.GOOS {
	case "darwin":
		exec.Command("launchctl", "unload", configPath).Run()
	case "linux":
		exec.Command("systemctl", "disable", systemdUnit).Run()
		exec.Command("systemctl", "daemon-reload").Run()
	}
	os.Remove(configPath)
	os.Remove(binaryPath)
	return nil
}

func Start() error {
	_, configPath, err := Paths()
	if err != nil {
		return err
	}
	if runtime.GOOS == "darwin" {
		return exec.Command("launchctl", "load", configPath).Run()
	}
	return exec.Command("systemctl", "start", systemdUnit).Run()
}

func Stop() error {
	_, configPath, err := Paths()
	if err != nil {
		return err
	}
	if runtime.GOOS == "darwin" {
		return exec.Command("launchctl", "unload", configPath).Run()
	}
	return exec.Command("systemctl", "stop", systemdUnit).Run()
}

// Restart ignores a failed stop; the service might not be running.
func Restart() error {
	_ = Stop()
	return Start()
}

func copyBinary(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0755)
}

func writeServiceConfig(configPath, binaryPath string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return Render(f, runtime.GOOS, binaryPath, args)
}

func enable(configPath string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("launchctl", "load", configPath).Run()
	case "linux":
		if err := exec.Command("systemctl", "daemon-reload").Run(); err != nil {
			return err
		}
		return exec.Command("systemctl", "enable", systemdUnit).Run()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.BinaryPath}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{.LogPath}}</string>
</dict>
</plist>
`

const systemdUnitTemplate = `[Unit]
Description=dogcmd voice command router
After=network.target

[Service]
Type=simple
ExecStart={{.BinaryPath}} {{.ArgLine}}
Restart=always
RestartSec=5
StandardOutput=append:{{.LogPath}}
StandardError=append:{{.LogPath}}

[Install]
WantedBy=multi-user.target
`

// Render writes the service definition for goos.
func Render(w io.Writer, goos, binaryPath string, args []string) error {
	var text string
	switch goos {
	case "darwin":
		text = launchdPlistTemplate
	case "linux":
		text = systemdUnitTemplate
	default:
		return fmt.Errorf("unsupported platform: %s", goos)
	}
	tmpl, err := template.New(goos).Parse(text)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, map[string]any{
		"Label":      launchdLabel,
		"BinaryPath": binaryPath,
		"Args":       args,
		"ArgLine":    strings.Join(args, " "),
		"LogPath":    logPath,
	})
}
