// Command roomstatus prints the occupancy of every room on an interval,
// signed in against the booking API with the same credentials a browser uses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/availability"
	"github.com/dukerupert/roomboard/internal/logging"
	"github.com/dukerupert/roomboard/internal/model"
)

var (
	occupied  = color.New(color.FgRed, color.Bold)
	soon      = color.New(color.FgYellow)
	available = color.New(color.FgGreen)
	faint     = color.New(color.Faint)
)

func main() {
	apiURL := flag.String("api", os.Getenv("ROOMBOARD_API_BASE_URL"), "booking API base URL")
	interval := flag.Duration("interval", 30*time.Second, "refresh interval, 0 prints once")
	roomID := flag.Int64("room", 0, "only show this room")
	flag.Parse()

	if *apiURL == "" {
		fmt.Fprintln(os.Stderr, "roomstatus: -api or ROOMBOARD_API_BASE_URL is required")
		os.Exit(2)
	}

	logger := logging.Setup(os.Getenv("ROOMSTATUS_LOG_LEVEL"), "text")
	client := apiclient.NewClient(*apiURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
		apiclient.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	token, err := signIn(ctx, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roomstatus: %v\n", err)
		os.Exit(1)
	}
	ctx = apiclient.WithToken(ctx, token)

	if err := run(ctx, client, os.Stdout, *roomID, *interval); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "roomstatus: %v\n", err)
		os.Exit(1)
	}
}

// signIn prefers ROOMSTATUS_TOKEN and otherwise logs in with
// ROOMSTATUS_EMAIL and ROOMSTATUS_PASSWORD.
func signIn(ctx context.Context, client *apiclient.Client) (string, error) {
	if token := os.Getenv("ROOMSTATUS_TOKEN"); token != "" {
		return token, nil
	}
	email, password := os.Getenv("ROOMSTATUS_EMAIL"), os.Getenv("ROOMSTATUS_PASSWORD")
	if email == "" || password == "" {
		return "", errors.New("set ROOMSTATUS_TOKEN or ROOMSTATUS_EMAIL and ROOMSTATUS_PASSWORD")
	}
	res, err := client.Login(ctx, email, password)
	if err != nil {
		return "", fmt.Errorf("sign in: %w", err)
	}
	return res.AccessToken, nil
}

func run(ctx context.Context, client *apiclient.Client, w io.Writer, roomID int64, interval time.Duration) error {
	for {
		if err := printRooms(ctx, client, w, roomID, time.Now()); err != nil {
			if errors.Is(err, apiclient.ErrUnauthorized) {
				return errors.New("session expired, sign in again")
			}
			return err
		}
		if interval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// printRooms prints every room, or only roomID when it is non-zero.
func printRooms(ctx context.Context, client *apiclient.Client, w io.Writer, roomID int64, now time.Time) error {
	rooms, err := client.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	events, err := client.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	byRoom := make(map[int64][]model.Event)
	for _, e := range events {
		byRoom[e.RoomID] = append(byRoom[e.RoomID], e)
	}

	faint.Fprintf(w, "%s\n", now.Format("Mon 2 Jan 15:04"))
	for _, room := range rooms {
		if roomID != 0 && room.ID != roomID {
			continue
		}
		snap := availability.Summarize(room, byRoom[room.ID], now)
		fmt.Fprintf(w, "  %-24s %s\n", room.Name, describe(snap))
	}
	fmt.Fprintln(w)
	return nil
}

func describe(snap availability.RoomSnapshot) string {
	switch snap.Status {
	case availability.StatusOccupied:
		return occupied.Sprintf("occupied") + faint.Sprintf("  %s until %s", snap.Current.Title, snap.Current.EndTime.Format("15:04"))
	case availability.StatusSoon:
		return soon.Sprintf("soon") + faint.Sprintf("  %s in %d min", snap.Next.Title, snap.MinutesUntil)
	}
	if snap.Next != nil {
		return available.Sprintf("available") + faint.Sprintf("  next at %s", snap.Next.StartTime.Format("15:04"))
	}
	return available.Sprintf("available")
}
