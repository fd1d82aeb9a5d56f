package booking

import (
	"fmt"
	"strings"
	"time"

	"bookify/models"
)

func slotLabel(slot models.Slot) string {
	return fmt.Sprintf("%s - %s", slot.Start.Format("3:04 PM"), slot.End.Format("3:04 PM"))
}

func confirmationMessage(title string, slot models.Slot) string {
	return fmt.Sprintf("✅ Appointment booked!\n\n📅 %s\n🕐 %s - %s",
		title,
		slot.Start.Format("Monday, January 2, 2006 at 3:04 PM"),
		slot.End.Format("3:04 PM"))
}

func deletionMessage(eventID string) string {
	return fmt.Sprintf("✅ Event cancelled (ID: %s).", eventID)
}

func proposalMessage(candidates []models.Slot, hadRequestedTime bool) string {
	var sb strings.Builder
	if hadRequestedTime {
		sb.WriteString("❌ The requested time is not available. Here are some free slots:\n")
	} else {
		sb.WriteString(fmt.Sprintf("Here are some free slots for %s:\n",
			candidates[0].Start.Format("Monday, January 2")))
	}
	for _, slot := range candidates {
		sb.WriteString("• " + slotLabel(slot) + "\n")
	}
	sb.WriteString("\nWhich time works best for you?")
	return sb.String()
}

func listMessage(events []models.Event, day time.Time) string {
	if len(events) == 0 {
		return fmt.Sprintf("You have no events on %s.", day.Format("Monday, January 2"))
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Here are your events for %s:\n", day.Format("Monday, January 2")))
	for _, event := range events {
		title := event.Title
		if title == "" {
			title = "Untitled"
		}
		sb.WriteString(fmt.Sprintf("• %s (ID: %s): %s - %s\n",
			title, event.ID,
			event.Start.Format("3:04 PM"), event.End.Format("3:04 PM")))
	}
	return strings.TrimRight(sb.String(), "\n")
}
