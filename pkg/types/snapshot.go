package types

// RoomState:
//   code: string                     6-digit room code
//   status: "waiting" | "ongoing" | "finished"
//   reset_version: number            epoch counter, starts at 1
//   called_numbers: number[]         in call order, sentinel stripped
//   last_called: number              0 when nothing called yet
//   ticket: int[3][9]                the recipient's own grid, if issued
//   tickets: { [playerId]: int[3][9] }   host recipients only
//   marked_numbers: { [playerId]: number[] }
//   claims: { [claimType]: winnerDisplayName }
//   players: string[]                sorted player ids
