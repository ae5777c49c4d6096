package config

// BotConf holds the chat transport settings. The token may also come from
// the BOT_TOKEN environment variable.
type BotConf struct {
	Token string `json:",optional"`
}

// DBConf holds the storage settings.
type DBConf struct {
	Path string `json:",default=expenses.db"`
}

// Config is the finbot runtime configuration, loaded from a YAML file.
type Config struct {
	Bot BotConf
	DB  DBConf
}
