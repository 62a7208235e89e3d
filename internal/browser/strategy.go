package browser

import "runtime"

type Backend string

const (
	BackendChrome Backend = "chrome"
	BackendHTTP   Backend = "http"
)

// Environment - на чем запущен процесс.
type Environment struct {
	Platform string
	Arch     string
}

func DetectEnvironment() Environment {
	return Environment{Platform: runtime.GOOS, Arch: runtime.GOARCH}
}

func (e Environment) String() string {
	return e.Platform + "/" + e.Arch
}

type LaunchOptions struct {
	Headless   bool
	ExecPath   string
	NoSandbox  bool
	DisableGPU bool
	Flags      map[string]interface{}
	UserAgent  string
	Proxy      string
	Width      int
	Height     int
}

// LaunchStrategy - один вариант запуска браузера. Applies == nil значит "везде".
type LaunchStrategy struct {
	Name    string
	Applies func(Environment) bool
	Backend Backend
	Options LaunchOptions
}

type StrategyConfig struct {
	Headless     bool
	ChromePath   string
	HTTPFallback bool
}

var systemChromePaths = map[string][]string{
	"linux": {
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/snap/bin/chromium",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	},
}

func onPlatform(platforms ...string) func(Environment) bool {
	return func(env Environment) bool {
		for _, p := range platforms {
			if env.Platform == p {
				return true
			}
		}
		return false
	}
}

// DefaultStrategies - полный список в порядке приоритета, фильтруется через SelectStrategies.
func DefaultStrategies(cfg StrategyConfig) []LaunchStrategy {
	var out []LaunchStrategy

	if cfg.ChromePath != "" {
		out = append(out, LaunchStrategy{
			Name:    "configured",
			Backend: BackendChrome,
			Options: LaunchOptions{Headless: cfg.Headless, ExecPath: cfg.ChromePath},
		})
	}

	out = append(out,
		LaunchStrategy{
			Name:    "generic",
			Backend: BackendChrome,
			Options: LaunchOptions{Headless: cfg.Headless},
		},
		LaunchStrategy{
			// в контейнерах нет user namespaces и мало /dev/shm
			Name:    "linux-container",
			Applies: onPlatform("linux"),
			Backend: BackendChrome,
			Options: LaunchOptions{
				Headless:   cfg.Headless,
				NoSandbox:  true,
				DisableGPU: true,
				Flags:      map[string]interface{}{"disable-dev-shm-usage": true},
			},
		},
	)

	for _, platform := range []string{"linux", "darwin", "windows"} {
		for _, path := range systemChromePaths[platform] {
			applies := onPlatform(platform)
			if path == "/usr/bin/google-chrome" {
				// под linux/arm64 Google Chrome не собирается, только chromium
				applies = func(env Environment) bool {
					return env.Platform == "linux" && env.Arch != "arm64"
				}
			}
			out = append(out, LaunchStrategy{
				Name:    "system:" + path,
				Applies: applies,
				Backend: BackendChrome,
				Options: LaunchOptions{
					Headless:  cfg.Headless,
					ExecPath:  path,
					NoSandbox: platform == "linux",
				},
			})
		}
	}

	out = append(out, LaunchStrategy{
		Name:    "minimal",
		Backend: BackendChrome,
		Options: LaunchOptions{
			Headless:   true,
			NoSandbox:  true,
			DisableGPU: true,
			Flags: map[string]interface{}{
				"disable-dev-shm-usage": true,
				"no-zygote":             true,
				"single-process":        true,
				"disable-extensions":    true,
			},
		},
	})

	if cfg.HTTPFallback {
		out = append(out, LaunchStrategy{Name: "http-fetch", Backend: BackendHTTP})
	}
	return out
}

// SelectStrategies оставляет применимые к env, порядок сохраняется.
func SelectStrategies(env Environment, all []LaunchStrategy) []LaunchStrategy {
	out := make([]LaunchStrategy, 0, len(all))
	for _, s := range all {
		if s.Applies == nil || s.Applies(env) {
			out = append(out, s)
		}
	}
	return out
}
