package main

import (
	"flag"
	"log"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zeromicro/go-zero/core/conf"

	"finbot/internal/bot"
	"finbot/internal/config"
	"finbot/internal/storage"
	"finbot/internal/suggest"
	"finbot/internal/workflow"
)

var configFile = flag.String("f", "etc/finbot.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		c.Bot.Token = token
	}
	if c.Bot.Token == "" {
		log.Fatal("no bot token: set Bot.Token in the config file or BOT_TOKEN")
	}

	db, err := storage.NewDB(c.DB.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	api, err := tgbotapi.NewBotAPI(c.Bot.Token)
	if err != nil {
		log.Fatalf("connecting to Telegram: %v", err)
	}
	log.Printf("bot started: @%s", api.Self.UserName)

	dispatcher := workflow.NewDispatcher(db, suggest.NewEngine(db))
	bot.New(api, dispatcher, db).Run()
}
