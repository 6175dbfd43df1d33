package feeds

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/irfndi/mto-floor-go/internal/models"
)

// gameIDSpace namespaces synthesized game ids.
var gameIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://mto-floor.local/games"))

// GameID prefixes the upstream id with the sport. When the upstream omits an
// id, a name-based UUID over the matchup keeps the id stable across polls.
func GameID(sport models.Sport, source models.SourceTag, upstreamID, home, away string, start time.Time) string {
	if id := strings.TrimSpace(upstreamID); id != "" {
		return fmt.Sprintf("%s-%s", sport, id)
	}
	name := strings.Join([]string{
		string(source),
		string(sport),
		strings.ToLower(strings.TrimSpace(home)),
		strings.ToLower(strings.TrimSpace(away)),
		start.UTC().Format(time.RFC3339),
	}, "|")
	return fmt.Sprintf("%s-%s", sport, uuid.NewSHA1(gameIDSpace, []byte(name)))
}
