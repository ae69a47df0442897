package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"chat-sync/domain"
	"chat-sync/infrastructure/api"
	"chat-sync/internal"
)

// viewer is a one-shot snapshot tool: it dumps the room list and, when a
// room is given, the first page of its history. No engine, no timers.
func main() {
	roomID := flag.String("room", "", "Room id to dump messages for")
	limit := flag.Int("limit", 50, "Messages per page")
	flag.Parse()

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	client := api.NewClient(&http.Client{Timeout: 10 * time.Second},
		config.ServerURL, config.CSRFToken, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rooms, err := client.Rooms(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch rooms: %v", err)
	}

	color.Green.Printf("Rooms on %s (%d)\n", config.ServerURL, len(rooms))
	renderRooms(rooms)

	if *roomID == "" {
		return
	}

	messages, pagination, err := client.Messages(ctx, *roomID, 1, *limit)
	if err != nil {
		log.Fatalf("Failed to fetch messages: %v", err)
	}

	color.Green.Printf("\nRoom %s, page %d/%d\n", *roomID, pagination.Page, pagination.TotalPages)
	renderMessages(messages)
}

func renderRooms(rooms []domain.Room) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Type", "Members", "Unread", "Last Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, room := range rooms {
		last := ""
		if room.LastMessage != nil {
			last = fmt.Sprintf("%s: %s", room.LastMessage.SenderName, room.LastMessage.Content)
		}
		table.Append([]string{
			room.ID,
			room.Name,
			string(room.Type),
			strconv.Itoa(room.ParticipantCount),
			strconv.Itoa(room.UnreadCount),
			last,
		})
	}
	table.Render()
}

func renderMessages(messages []domain.Message) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Sender", "Type", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, msg := range messages {
		content := msg.Content
		if msg.Type == domain.MessageFile {
			content = fmt.Sprintf("%s (%d bytes)", msg.FileName, msg.FileSize)
		}
		table.Append([]string{
			msg.CreatedAt.Format(time.TimeOnly),
			msg.SenderName,
			string(msg.Type),
			content,
		})
	}
	table.Render()
}
