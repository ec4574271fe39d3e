package telegram

import (
	"fmt"
	"sync"

	"posti_delivery_tracker/internal/app"
	"posti_delivery_tracker/internal/domain/schedule"
	domainTelegram "posti_delivery_tracker/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// DeliveryNotifier is a thin consumer of the coordinator update surface: it
// listens for snapshot changes and messages a configured chat whenever the
// next scheduled delivery date for a postal code changes. It never reaches
// into coordinator internals beyond the published snapshot.
type DeliveryNotifier struct {
	registry *app.CoordinatorRegistry
	client   domainTelegram.Client
	chatID   int64
	logger   *logrus.Entry

	mu        sync.Mutex
	announced map[schedule.PostalCode]string // last announced state per code
}

func NewDeliveryNotifier(
	registry *app.CoordinatorRegistry,
	client domainTelegram.Client,
	chatID int64,
	log *logrus.Entry,
) *DeliveryNotifier {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DeliveryNotifier{
		registry:  registry,
		client:    client,
		chatID:    chatID,
		logger:    log.WithField("component", "delivery_notifier"),
		announced: make(map[schedule.PostalCode]string),
	}
}

// Register subscribes the notifier to the registry. Call before tracking
// begins so every coordinator gets the listener.
func (n *DeliveryNotifier) Register() {
	n.registry.AddListener(n.onUpdate)
}

func (n *DeliveryNotifier) onUpdate(postalCode schedule.PostalCode) {
	coordinator, ok := n.registry.Coordinator(postalCode.String())
	if !ok {
		return
	}
	snap, ok := coordinator.Snapshot()
	if !ok {
		return
	}

	state := "no upcoming delivery"
	if snap.NextScheduled != nil {
		state = snap.NextScheduled.String()
	}

	n.mu.Lock()
	prev, seen := n.announced[postalCode]
	n.announced[postalCode] = state
	n.mu.Unlock()

	// Only changes are announced; the first observation after startup is not
	// news to the chat.
	if !seen || prev == state {
		return
	}

	var text string
	if snap.NextScheduled != nil && snap.DaysUntilNext != nil {
		text = fmt.Sprintf("Mail delivery for %s: next delivery %s (in %d days)",
			postalCode, state, *snap.DaysUntilNext)
	} else {
		text = fmt.Sprintf("Mail delivery for %s: no upcoming delivery scheduled", postalCode)
	}

	if err := n.client.SendMessage(n.chatID, text, nil); err != nil {
		n.logger.WithError(err).WithField("postal_code", postalCode.String()).
			Warn("Could not send delivery notification")
	}
}
