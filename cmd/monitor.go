package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"

	"github.com/gridline/table-sync-service/internal/domain/model"
)

// monitorCmd renders a live terminal dashboard from a running server's
// /stats endpoint.
func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:    "monitor",
		Aliases: []string{"m"},
		Usage:   "Live dashboard for a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "http://127.0.0.1:8080",
				Usage: "Base URL of the server to watch",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: time.Second,
				Usage: "Poll interval",
			},
		},
		Action: func(c *cli.Context) error {
			return runMonitor(c.String("addr"), c.Duration("interval"))
		},
	}
}

func runMonitor(addr string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("monitor: init terminal: %w", err)
	}
	defer ui.Close()

	header := widgets.NewParagraph()
	header.Title = ServiceName
	header.SetRect(0, 0, 80, 3)

	tables := widgets.NewTable()
	tables.Title = "Tables"
	tables.RowSeparator = false
	tables.SetRect(0, 3, 80, 20)

	client := &http.Client{Timeout: 3 * time.Second}
	refresh := func() {
		stats, err := fetchStats(client, addr)
		if err != nil {
			header.Text = fmt.Sprintf("%s - unreachable: %v", addr, err)
			tables.Rows = [][]string{{"table", "size", "subs", "locks"}}
		} else {
			header.Text = fmt.Sprintf("%s  tables: %d  subscribers: %d  uptime: %s",
				addr, stats.TotalTables, stats.TotalSubscribers, stats.Uptime.Round(time.Second))
			rows := [][]string{{"table", "size", "subs", "locks"}}
			sort.Slice(stats.Tables, func(i, j int) bool {
				return stats.Tables[i].TableID < stats.Tables[j].TableID
			})
			for _, t := range stats.Tables {
				rows = append(rows, []string{
					fmt.Sprintf("%d", t.TableID),
					fmt.Sprintf("%dx%d", t.Height, t.Width),
					fmt.Sprintf("%d", t.Subscribers),
					fmt.Sprintf("%d", t.ActiveLocks),
				})
			}
			tables.Rows = rows
		}
		ui.Render(header, tables)
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			if e.Type == ui.KeyboardEvent && (e.ID == "q" || e.ID == "<C-c>") {
				return nil
			}
			if e.Type == ui.ResizeEvent {
				refresh()
			}
		case <-ticker.C:
			refresh()
		}
	}
}

func fetchStats(client *http.Client, addr string) (*model.RegistryStats, error) {
	resp, err := client.Get(addr + "/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	var stats model.RegistryStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
