package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hpcsim/topocoll/report"
	"github.com/hpcsim/topocoll/scenario"
)

func newScenarioCmd(a *app) *cobra.Command {
	var file string
	var csvPath string
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run a YAML scenario on a simulated network",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := scenario.LoadFile(file)
			if err != nil {
				return err
			}

			logger := log.New(cmd.OutOrStdout(), "", 0)
			reporters := report.MultiReporter{&report.ConsoleReporter{Logger: logger}}

			var csvRep *report.CSVReporter
			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return err
				}
				defer f.Close()
				csvRep = report.NewCSVReporter(f)
				reporters = append(reporters, csvRep)
			}

			var srv *http.Server
			if addr := a.cfg.Metrics.Addr; addr != "" {
				reg := prometheus.NewRegistry()
				reporters = append(reporters, report.NewPromReporter(reg))
				srv = serveMetrics(addr, reg)
			}

			if err := scenario.Run(cfg, reporters); err != nil {
				return err
			}
			if csvRep != nil {
				if err := csvRep.Flush(); err != nil {
					return err
				}
			}
			if srv != nil {
				// Hold the endpoint open so a scraper can collect the
				// run before the process exits.
				log.Printf("serving metrics on %s, interrupt to exit", srv.Addr)
				interrupt := make(chan os.Signal, 1)
				signal.Notify(interrupt, os.Interrupt)
				<-interrupt
				return srv.Close()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "scenario YAML file")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write results to a CSV file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()
	return srv
}
