package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shotbridge/internal/config"
	"shotbridge/internal/connection"
	"shotbridge/internal/credentials"
)

const connectivityTimeout = 30 * time.Second

// CheckCredentialFile verifies the credential file exists, is private to
// its owner and carries every field. When the file is absent, complete
// FTRACK_* environment variables also pass.
func CheckCredentialFile(path string) Result {
	const name = "Credentials"

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if env, ok := credentials.FromEnv(); ok && len(env.Missing()) == 0 {
				return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s not found; using %s environment", path, credentials.EnvServer)}
			}
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist; run \"shotbridge credentials set\")", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: mode %04o is accessible by others; want 0600)", path, perm)}
	}

	creds, err := credentials.NewFileStore(path).Load()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if missing := creds.Normalized().Missing(); len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing %s)", path, strings.Join(missing, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s, key %s)", path, creds.Normalized(), creds.MaskedKey())}
}

// CheckConnectivity resolves credentials from cfg and runs a test round
// trip with a 30-second timeout.
func CheckConnectivity(ctx context.Context, cfg *config.Config, tester Tester) Result {
	const name = "Tracking server"

	creds, source, err := connection.ResolveCredentials(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()

	ok, detail := tester.Test(checkCtx, creds)
	if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
		return Result{Name: name, Detail: "test timed out (server unresponsive)"}
	}
	detail = fmt.Sprintf("%s [%s credentials]", detail, source)
	return Result{Name: name, Passed: ok, Detail: detail}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if expanded, err := config.ExpandPath(path); err == nil {
		path = expanded
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}
