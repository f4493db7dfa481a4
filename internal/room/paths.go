package room

import "github.com/chandana0511/tambola-backend/internal/claims"

// Store layout, per room keyed by 6-digit code:
//
//	rooms/{code}/hostId         string
//	rooms/{code}/status         "waiting" | "ongoing" | "finished"
//	rooms/{code}/resetVersion   int64, starts at 1
//	rooms/{code}/timestamp      creation epoch millis
//	rooms/{code}/calledNumbers  []int, index 0 is the sentinel 0
//	rooms/{code}/tickets/{playerId}        ticket.Ticket
//	rooms/{code}/markedNumbers/{playerId}  []int
//	rooms/{code}/claims/{claimType}        winner display name
//	rooms/{code}/players/{playerId}        true
func roomPath(code string) string { return "rooms/" + code }

func statusPath(code string) string { return roomPath(code) + "/status" }

func calledPath(code string) string { return roomPath(code) + "/calledNumbers" }

func claimPath(code string, c claims.Type) string {
	return roomPath(code) + "/claims/" + string(c)
}

func ticketsPath(code string) string { return roomPath(code) + "/tickets" }

func ticketPath(code, playerID string) string {
	return roomPath(code) + "/tickets/" + playerID
}

func markPath(code, playerID string) string {
	return roomPath(code) + "/markedNumbers/" + playerID
}

func playerPath(code, playerID string) string {
	return roomPath(code) + "/players/" + playerID
}
