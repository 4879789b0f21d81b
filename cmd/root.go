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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abrekhov/cloudserver/pkg/destination"
	"github.com/abrekhov/cloudserver/pkg/transfer"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Flags
var (
	cfgFile string
	verbose bool
)

// Configuration keys for the FTP destination, shared by serve and upload.
const (
	keyFTPAddr     = "ftp.addr"
	keyFTPUser     = "ftp.user"
	keyFTPPassword = "ftp.password"
	keyFTPTimeout  = "ftp.timeout"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cloudserver",
	Short: "Chunked file uploads to local disk or FTP",
	Long: `CloudServer - streams files to a local directory or an FTP server in bounded
chunks, reporting progress while the upload runs. Use "serve" for the HTTP
upload API or "upload" to push a single file from the command line.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cloudserver.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Increase verbosity")

	defaults := transfer.DefaultConfig()
	rootCmd.PersistentFlags().Int("max-chunk-bytes", defaults.MaxChunkBytes, "Largest chunk held in memory per upload")
	rootCmd.PersistentFlags().Int64("max-total-bytes", defaults.MaxTotalBytes, "Largest file accepted")
	rootCmd.PersistentFlags().Int("max-concurrent-tasks", defaults.MaxConcurrentTasks, "Uploads allowed to run at once")
	rootCmd.PersistentFlags().Int("max-zero-reads", defaults.MaxZeroReads, "Empty reads tolerated before a source counts as stalled")
	bindFlags(rootCmd, map[string]string{
		transfer.KeyMaxChunkBytes:      "max-chunk-bytes",
		transfer.KeyMaxTotalBytes:      "max-total-bytes",
		transfer.KeyMaxConcurrentTasks: "max-concurrent-tasks",
		transfer.KeyMaxZeroReads:       "max-zero-reads",
	}, true)

	rootCmd.PersistentFlags().String("ftp-addr", "", "FTP server host:port")
	rootCmd.PersistentFlags().String("ftp-user", "", "FTP user (default anonymous)")
	rootCmd.PersistentFlags().String("ftp-password", "", "FTP password")
	rootCmd.PersistentFlags().Duration("ftp-timeout", 30*time.Second, "FTP dial timeout")
	bindFlags(rootCmd, map[string]string{
		keyFTPAddr:     "ftp-addr",
		keyFTPUser:     "ftp-user",
		keyFTPPassword: "ftp-password",
		keyFTPTimeout:  "ftp-timeout",
	}, true)
}

// bindFlags binds viper keys to the named flags of cmd.
func bindFlags(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(name)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".cloudserver" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".cloudserver")
	}

	// CLOUDSERVER_MAX_CHUNK_BYTES, CLOUDSERVER_FTP_ADDR, ...
	viper.SetEnvPrefix("cloudserver")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newEngine builds the upload engine from the merged configuration.
func newEngine() (*transfer.Engine, error) {
	cfg, err := transfer.ConfigFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"chunk":      transfer.FormatSize(int64(cfg.MaxChunkBytes)),
		"limit":      transfer.FormatSize(cfg.MaxTotalBytes),
		"concurrent": cfg.MaxConcurrentTasks,
	}).Debugln("Engine configured")
	return transfer.NewEngine(cfg)
}

// ftpConfig reads the FTP destination settings.
func ftpConfig() destination.FTPConfig {
	return destination.FTPConfig{
		Addr:     viper.GetString(keyFTPAddr),
		User:     viper.GetString(keyFTPUser),
		Password: viper.GetString(keyFTPPassword),
		Timeout:  viper.GetDuration(keyFTPTimeout),
	}
}
