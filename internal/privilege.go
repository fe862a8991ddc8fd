package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

const oomScoreAdjPath = "/proc/self/oom_score_adj"

// dropTarget is the unprivileged identity to switch to
type dropTarget struct {
	User  string
	Group string
	UID   int
	GID   int
}

// resolveDropTarget looks up the configured user and group. A missing
// "nobody" group falls back to "nogroup" as on Debian.
func resolveDropTarget(userName, groupName string) (dropTarget, error) {
	u, err := user.Lookup(userName)
	if err != nil {
		return dropTarget{}, fatalf("getpwnam "+userName, err)
	}

	g, err := user.LookupGroup(groupName)
	if err != nil && groupName == "nobody" {
		g, err = user.LookupGroup("nogroup")
	}
	if err != nil {
		return dropTarget{}, fatalf("getgrnam "+groupName, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return dropTarget{}, fatalf("getpwnam "+userName, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return dropTarget{}, fatalf("getgrnam "+groupName, err)
	}

	return dropTarget{User: u.Username, Group: g.Name, UID: uid, GID: gid}, nil
}

// dropPrivileges switches to the target identity if running with effective
// uid 0, and fails if root privileges survive the switch
func dropPrivileges(t dropTarget) error {
	if os.Geteuid() != 0 {
		return nil
	}

	if err := unix.Setgroups(nil); err != nil {
		return fatalf("setgroups", err)
	}
	if err := unix.Setgid(t.GID); err != nil {
		return fatalf("setgid", err)
	}
	if err := unix.Setuid(t.UID); err != nil {
		return fatalf("setuid", err)
	}
	if t.UID != 0 && (os.Geteuid() == 0 || os.Getuid() == 0) {
		return fatalf("cannot drop privileges", errors.New("still running as root"))
	}

	Debug("Dropped privileges to %s:%s", t.User, t.Group)
	return nil
}

// dontKillMe exempts the process from the OOM killer. A kernel without
// the knob is fine; failing to write it only matters when privileged.
func dontKillMe(path string, privileged bool) error {
	err := writeExisting(path, "-1000\n")
	switch {
	case err == nil:
		Debug("OOM killer exemption set")
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case privileged:
		return fatalf("unable to disable OOM killer", err)
	}
	Debug("Unable to disable OOM killer without privileges: %v", err)
	return nil
}

func writeExisting(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// detach stops terminal signals from ending the lock and stops reading
// from the terminal
func detach() error {
	signal.Ignore(syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP)

	devnull, err := os.Open(os.DevNull)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	if devnull.Fd() == os.Stdin.Fd() {
		// stdin was closed and /dev/null took its place
		return nil
	}
	defer devnull.Close()

	if err := unix.Dup3(int(devnull.Fd()), int(os.Stdin.Fd()), 0); err != nil {
		return fmt.Errorf("failed to redirect stdin: %w", err)
	}
	Debug("Detached from terminal")
	return nil
}
