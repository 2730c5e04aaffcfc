package domain

//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

// BotMode represents the active notification mode of the bot
// ENUM(channels,email,none)
type BotMode string

// AppEnv represents the application environment
// ENUM(local,production,development,testing)
type AppEnv string
