package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bookify/models"
)

// GoogleCalendarService talks to the Google Calendar v3 API with
// service-account credentials.
type GoogleCalendarService struct {
	svc        *gcal.Service
	calendarID string
	location   *time.Location
}

// NewGoogleCalendarService builds the calendar client from a service-account
// credentials file.
func NewGoogleCalendarService(ctx context.Context, credentialsPath, calendarID string, loc *time.Location) (*GoogleCalendarService, error) {
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleCalendarService{svc: svc, calendarID: calendarID, location: loc}, nil
}

func (g *GoogleCalendarService) FreeBusy(ctx context.Context, start, end time.Time) ([]models.Slot, error) {
	query := &gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: g.calendarID}},
	}

	result, err := g.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, NewUnavailableError("freebusy query failed", err)
	}

	var busy []models.Slot
	for _, cal := range result.Calendars {
		for _, interval := range cal.Busy {
			s, err := time.Parse(time.RFC3339, interval.Start)
			if err != nil {
				continue
			}
			e, err := time.Parse(time.RFC3339, interval.End)
			if err != nil {
				continue
			}
			busy = append(busy, models.Slot{Start: s.In(g.location), End: e.In(g.location)})
		}
	}
	return busy, nil
}

func (g *GoogleCalendarService) ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	call := g.svc.Events.List(g.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	result, err := call.Do()
	if err != nil {
		return nil, NewUnavailableError("failed to list events", err)
	}

	var events []models.Event
	for _, item := range result.Items {
		events = append(events, g.toEvent(item))
	}
	return events, nil
}

func (g *GoogleCalendarService) CreateEvent(ctx context.Context, title string, slot models.Slot, attendees []string, description string) (*models.Event, error) {
	event := &gcal.Event{
		Summary:     title,
		Description: description,
		Start: &gcal.EventDateTime{
			DateTime: slot.Start.Format(time.RFC3339),
			TimeZone: g.location.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: slot.End.Format(time.RFC3339),
			TimeZone: g.location.String(),
		},
	}
	for _, email := range attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	created, err := g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, NewUnavailableError("failed to create event", err)
	}

	out := g.toEvent(created)
	return &out, nil
}

func (g *GoogleCalendarService) DeleteEvent(ctx context.Context, eventID string) error {
	err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return ErrEventNotFound
	}
	return NewUnavailableError("failed to delete event", err)
}

func (g *GoogleCalendarService) toEvent(item *gcal.Event) models.Event {
	event := models.Event{
		ID:    item.Id,
		Title: item.Summary,
		Link:  item.HtmlLink,
	}
	if item.Start != nil && item.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
			event.Start = t.In(g.location)
		}
	}
	if item.End != nil && item.End.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
			event.End = t.In(g.location)
		}
	}
	for _, a := range item.Attendees {
		event.Attendees = append(event.Attendees, a.Email)
	}
	return event
}
