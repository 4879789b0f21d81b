/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abrekhov/cloudserver/pkg/destination"
	"github.com/abrekhov/cloudserver/pkg/transfer"
	"github.com/spf13/viper"
)

func TestPlanUploadLocal(t *testing.T) {
	dir := t.TempDir()
	meta := transfer.NewMetadata("report.txt", 10)

	plan := planUpload(meta, dir, destination.FTPConfig{})
	if _, ok := plan.dest.(*destination.Local); !ok {
		t.Fatalf("expected local destination, got %T", plan.dest)
	}
	if plan.path != "/report.txt" {
		t.Fatalf("expected /report.txt, got %s", plan.path)
	}
	if plan.target != filepath.Join(dir, "report.txt") {
		t.Fatalf("unexpected target %s", plan.target)
	}
}

func TestPlanUploadFTP(t *testing.T) {
	meta := transfer.NewMetadata("report.txt", 10)

	plan := planUpload(meta, "incoming", destination.FTPConfig{Addr: "ftp.example.com:21"})
	if _, ok := plan.dest.(*destination.FTP); !ok {
		t.Fatalf("expected ftp destination, got %T", plan.dest)
	}
	if plan.path != "/incoming/report.txt" {
		t.Fatalf("expected /incoming/report.txt, got %s", plan.path)
	}
	if plan.target != "ftp://ftp.example.com:21" {
		t.Fatalf("unexpected target %s", plan.target)
	}
}

func TestConfirmOverwriteSkipsPrompt(t *testing.T) {
	dir := t.TempDir()
	meta := transfer.NewMetadata("a.txt", 1)
	plan := planUpload(meta, dir, destination.FTPConfig{})

	ok, err := confirmOverwrite(plan, false)
	if err != nil || !ok {
		t.Fatalf("missing file should not prompt: ok=%v err=%v", ok, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	ok, err = confirmOverwrite(plan, true)
	if err != nil || !ok {
		t.Fatalf("--yes should overwrite without asking: ok=%v err=%v", ok, err)
	}
}

func TestVerifyLocal(t *testing.T) {
	dir := t.TempDir()
	plan := planUpload(transfer.NewMetadata("a.txt", 5), dir, destination.FTPConfig{})
	if err := os.WriteFile(plan.target, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	sum, err := transfer.ChecksumHex(strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}

	if err := verifyLocal(plan, sum); err != nil {
		t.Fatalf("matching checksum rejected: %v", err)
	}
	if err := verifyLocal(plan, strings.Repeat("0", 64)); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}

	remote := planUpload(transfer.NewMetadata("a.txt", 5), "in", destination.FTPConfig{Addr: "127.0.0.1:21"})
	if err := verifyLocal(remote, "ignored"); err != nil {
		t.Fatalf("remote targets are not verified: %v", err)
	}
}

func TestNewEngineFromViper(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set(transfer.KeyMaxChunkBytes, 4096)
	viper.Set(transfer.KeyMaxConcurrentTasks, 2)
	e, err := newEngine()
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Config().MaxChunkBytes; got != 4096 {
		t.Fatalf("expected chunk size 4096, got %d", got)
	}
	if got := e.Config().MaxTotalBytes; got != transfer.DefaultConfig().MaxTotalBytes {
		t.Fatalf("expected default limit, got %d", got)
	}

	viper.Set(transfer.KeyMaxChunkBytes, 0)
	if _, err := newEngine(); err == nil || !strings.Contains(err.Error(), transfer.KeyMaxChunkBytes) {
		t.Fatalf("expected error naming %s, got %v", transfer.KeyMaxChunkBytes, err)
	}
}

func TestFTPConfigFromViper(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set(keyFTPAddr, "127.0.0.1:2121")
	viper.Set(keyFTPUser, "drive")
	viper.Set(keyFTPTimeout, "5s")
	cfg := ftpConfig()
	if cfg.Addr != "127.0.0.1:2121" || cfg.User != "drive" || cfg.Timeout != 5*time.Second {
		t.Fatalf("unexpected ftp config %+v", cfg)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	if strings.TrimSpace(out.String()) != Version {
		t.Fatalf("expected %q, got %q", Version, out.String())
	}
}

func TestVersionCommandLong(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	if err := versionCmd.Flags().Set("long", "true"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		versionCmd.SetOut(nil)
		_ = versionCmd.Flags().Set("long", "false")
	})

	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(out.String(), "cloudserver\t"+Version+"\n") {
		t.Fatalf("expected cloudserver version line, got %q", out.String())
	}
	if !strings.Contains(out.String(), "commit\t"+Commit) {
		t.Fatalf("missing commit in %q", out.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "upload": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
