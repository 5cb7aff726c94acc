package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

// deadPid returns the pid of a process that has already exited.
func deadPid(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot run true: %v", err)
	}
	return cmd.Process.Pid
}

func TestCheckExisting(t *testing.T) {
	tests := []struct {
		name     string
		content  func(t *testing.T) string
		wantErr  bool
		wantKept bool
	}{
		{"live pid", func(*testing.T) string { return strconv.Itoa(os.Getpid()) }, true, true},
		{"live pid with newline", func(*testing.T) string { return strconv.Itoa(os.Getpid()) + "\n" }, true, true},
		{"exited process", func(t *testing.T) string { return strconv.Itoa(deadPid(t)) }, false, false},
		{"garbage", func(*testing.T) string { return "not-a-pid" }, false, false},
		{"empty", func(*testing.T) string { return "" }, false, false},
		{"negative", func(*testing.T) string { return "-4" }, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &pidManager{path: filepath.Join(t.TempDir(), PidName)}
			if err := os.WriteFile(p.path, []byte(tt.content(t)), 0o600); err != nil {
				t.Fatal(err)
			}

			err := p.checkExisting()
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "already running") {
					t.Fatalf("checkExisting() = %v, want already running", err)
				}
			} else if err != nil {
				t.Fatalf("checkExisting() = %v", err)
			}

			_, statErr := os.Stat(p.path)
			if kept := statErr == nil; kept != tt.wantKept {
				t.Errorf("pid file kept = %v, want %v", kept, tt.wantKept)
			}
		})
	}

	t.Run("no pid file", func(t *testing.T) {
		p := &pidManager{path: filepath.Join(t.TempDir(), PidName)}
		if err := p.checkExisting(); err != nil {
			t.Errorf("checkExisting() = %v", err)
		}
	})
}

func TestPidManagerCreate(t *testing.T) {
	p := &pidManager{path: filepath.Join(t.TempDir(), "nested", PidName)}
	if err := p.create(); err != nil {
		t.Fatalf("create: %v", err)
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("pid file = %q, want %d", data, os.Getpid())
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(p.path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("pid file mode = %o, want 600", perm)
		}
	}

	if err := p.remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := p.checkExisting(); err != nil {
		t.Errorf("checkExisting after remove = %v", err)
	}
}

// serve answers each connection like the daemon does and records the raw
// request lines it saw.
func serve(t *testing.T, ln net.Listener) <-chan string {
	t.Helper()
	seen := make(chan string, 16)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				seen <- line
				switch line[0] {
				case CmdToggle:
					fmt.Fprint(c, "STATUS recording=true\n")
				case CmdStatus:
					fmt.Fprint(c, "STATUS status=idle recording=false engine=none\n")
				case CmdRelease:
					fmt.Fprint(c, "OK released\n")
				case CmdVersion:
					fmt.Fprintf(c, "STATUS proto=%s\n", ProtoVer)
				case CmdQuit:
					fmt.Fprint(c, "OK quitting\n")
				default:
					fmt.Fprintf(c, "ERR unknown=%q\n", line[0])
				}
			}(c)
		}
	}()
	return seen
}

func TestSocketSend(t *testing.T) {
	s := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	ln, err := s.listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	seen := serve(t, ln)

	tests := []struct {
		cmd  byte
		want string
	}{
		{CmdToggle, "STATUS recording=true\n"},
		{CmdStatus, "STATUS status=idle recording=false engine=none\n"},
		{CmdRelease, "OK released\n"},
		{CmdVersion, "STATUS proto=" + ProtoVer + "\n"},
		{CmdQuit, "OK quitting\n"},
		{'x', "ERR unknown='x'\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			got, err := s.send(tt.cmd)
			if err != nil {
				t.Fatalf("send: %v", err)
			}
			if got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
			if line := <-seen; line != string([]byte{tt.cmd, '\n'}) {
				t.Errorf("server read %q", line)
			}
		})
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	s := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	if err := os.WriteFile(s.path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	ln, err := s.listen()
	if err != nil {
		t.Fatalf("listen over stale socket: %v", err)
	}
	defer ln.Close()
	serve(t, ln)

	if _, err := s.send(CmdVersion); err != nil {
		t.Errorf("send after relisten: %v", err)
	}
}

func TestSendNoListener(t *testing.T) {
	s := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	ln, err := s.listen()
	if err != nil {
		t.Fatal(err)
	}
	// closing a unix listener unlinks the socket; leave a dead file behind
	ln.Close()
	if err := os.WriteFile(s.path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if _, err := s.send(CmdStatus); err == nil {
		t.Fatal("send succeeded with nothing listening")
	}
	if d := time.Since(start); d > dialTimeout {
		t.Errorf("send took %v, want under %v", d, dialTimeout)
	}
}

func TestSendReplyTimeout(t *testing.T) {
	old := replyTimeout
	replyTimeout = 100 * time.Millisecond
	defer func() { replyTimeout = old }()

	s := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	ln, err := s.listen()
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	release := make(chan struct{})
	defer close(release)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		<-release
	}()

	_, err = s.send(CmdRelease)
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("send = %v, want timeout", err)
	}
}

func TestPaths(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", base)
	t.Setenv("HOME", base)

	sock, err := SockPath()
	if err != nil {
		t.Fatal(err)
	}
	pid, err := PidPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(sock) != SockName || filepath.Base(pid) != PidName {
		t.Errorf("SockPath = %s, PidPath = %s", sock, pid)
	}
	if filepath.Dir(sock) != filepath.Dir(pid) || filepath.Base(filepath.Dir(sock)) != "webwhisper" {
		t.Errorf("socket and pid file should share the webwhisper cache dir: %s, %s", sock, pid)
	}
	if runtime.GOOS == "linux" && filepath.Dir(sock) != filepath.Join(base, "webwhisper") {
		t.Errorf("SockPath = %s, want under %s", sock, base)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", base)
	t.Setenv("HOME", base)

	if _, err := SendCommand(CmdStatus); err == nil {
		t.Fatal("SendCommand succeeded with no instance running")
	}
	if err := CheckExistingDaemon(); err != nil {
		t.Fatalf("CheckExistingDaemon with no pid file: %v", err)
	}

	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile: %v", err)
	}
	if err := CheckExistingDaemon(); err == nil {
		t.Error("CheckExistingDaemon should refuse while this process holds the pid file")
	}

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	serve(t, ln)
	resp, err := SendCommand(CmdVersion)
	ln.Close()
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if resp != "STATUS proto="+ProtoVer+"\n" {
		t.Errorf("version reply = %q", resp)
	}

	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile: %v", err)
	}
	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon after removal: %v", err)
	}
}
