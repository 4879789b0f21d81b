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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/AlecAivazis/survey/v2"
	"github.com/abrekhov/cloudserver/pkg/destination"
	"github.com/abrekhov/cloudserver/pkg/transfer"
	"github.com/abrekhov/cloudserver/pkg/tui"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	uploadDir string
	useTUI    bool
	assumeYes bool
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a single file",
	Long: `Upload streams FILE to the local directory given by --dir or, when
--ftp-addr is set, to the FTP server, where --dir names the remote directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVarP(&uploadDir, "dir", "d", ".", "Target directory")
	uploadCmd.Flags().BoolVar(&useTUI, "tui", false, "Show an interactive progress view")
	uploadCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Overwrite an existing file without asking")
}

// uploadPlan is the resolved destination for one upload.
type uploadPlan struct {
	dest   transfer.Destination
	target string
	path   string
}

func planUpload(meta *transfer.Metadata, dir string, ftpCfg destination.FTPConfig) uploadPlan {
	if ftpCfg.Addr != "" {
		return uploadPlan{
			dest:   destination.NewFTP(ftpCfg),
			target: "ftp://" + ftpCfg.Addr,
			path:   meta.RemotePath(dir),
		}
	}
	return uploadPlan{
		dest:   destination.NewLocalRoot(dir),
		target: meta.LocalPath(dir),
		path:   meta.RemotePath(""),
	}
}

// confirmOverwrite asks before replacing an existing local file.
// Remote targets are not probed.
func confirmOverwrite(plan uploadPlan, yes bool) (bool, error) {
	local, ok := plan.dest.(*destination.Local)
	if !ok || yes {
		return true, nil
	}
	exists, err := afero.Exists(local.Fs(), plan.path)
	if err != nil || !exists {
		return true, err
	}
	overwrite := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s already exists. Overwrite?", plan.target),
	}
	if err := survey.AskOne(prompt, &overwrite); err != nil {
		return false, err
	}
	return overwrite, nil
}

// verifyLocal re-reads a local artifact and compares it with the checksum
// taken while it was written.
func verifyLocal(plan uploadPlan, want string) error {
	if _, ok := plan.dest.(*destination.Local); !ok {
		return nil
	}
	got, err := transfer.FileChecksumHex(plan.target)
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", plan.target, err)
	}
	if got != want {
		return fmt.Errorf("checksum mismatch for %s: wrote %s, found %s", plan.target, want, got)
	}
	log.WithField("file", plan.target).Debugln("Checksum verified")
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	src, err := transfer.NewFileSource(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	meta := transfer.MetadataFromSource(src)
	if err := meta.Validate(); err != nil {
		return err
	}
	plan := planUpload(meta, uploadDir, ftpConfig())

	ok, err := confirmOverwrite(plan, assumeYes)
	if err != nil {
		return err
	}
	if !ok {
		log.Infoln("Upload skipped")
		return nil
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	task := transfer.NewUploadTask(src, plan.path)
	log.WithFields(log.Fields{
		"file":   args[0],
		"size":   transfer.FormatSize(src.Size()),
		"target": plan.target,
	}).Infoln("Uploading...")

	var runErr error
	if useTUI {
		done := make(chan error, 1)
		if err := tui.Run(task, plan.target, cancel, func() {
			done <- engine.Run(ctx, task, plan.dest)
		}); err != nil {
			log.WithError(err).Debugln("Progress view ended")
		}
		runErr = <-done
	} else {
		runErr = runWithProgressLine(ctx, engine, task, plan.dest, cmd.ErrOrStderr())
	}

	switch task.Status() {
	case transfer.StatusCompleted:
		if err := verifyLocal(plan, task.Checksum()); err != nil {
			return err
		}
		log.WithField("sha256", task.Checksum()).Infoln("Upload complete")
		return nil
	case transfer.StatusCanceled:
		log.Warnln("Upload canceled")
		return nil
	default:
		return fmt.Errorf("upload failed (%s): %w", transfer.KindOf(runErr), runErr)
	}
}

func runWithProgressLine(ctx context.Context, engine *transfer.Engine, task *transfer.UploadTask, dest transfer.Destination, w io.Writer) error {
	unsubscribe := task.Subscribe(func(s transfer.Snapshot) {
		transfer.PrintProgressLine(w, s)
	})
	defer unsubscribe()

	err := <-engine.Go(ctx, task, dest)
	fmt.Fprintln(w)
	return err
}
