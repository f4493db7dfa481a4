package types

// Client -> Server (websocket, JSON)
// StartGame: {}            host only; room status -> "ongoing"
//
// CallNumber: {}           host only; draws one number, publishes the
//                          whole updated called sequence
//
// MarkNumber:
//   number: int            must already be called
//
// SubmitClaim:
//   claim: "Early Five" | "Four Corners" | "Top Line" |
//          "Middle Line" | "Bottom Line" | "Full House"
//
// EndGame: {}              host only; room status -> "finished"
//
// ResetGame: {}            host only; bumps reset_version, clears
//                          called/claims/marks/tickets, reissues tickets

// Server -> Client
// StateSnapshot:
//   version: number        session-local, monotonically increasing
//   reset: boolean         true on the first snapshot of a new epoch
//   state: RoomState       full state, never a diff
//
// Error:
//   error: string          "already_claimed" | "invalid_claim" |
//                          "number_not_called" | "no_ticket" |
//                          "game_finished" | "not_host" |
//                          "room_not_found" | "not_authenticated"
