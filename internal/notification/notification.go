/*
Copyright 2025 Tawi Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/internal/request"
)

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

// SlackNotification sends an error message to the configured Slack webhook.
func SlackNotification(err error) {
	conf, cfgErr := config.Fetch()
	if cfgErr != nil {
		log.Println(cfgErr)
		return
	}

	message := slackMessage{
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: "Error From Tawi", Emoji: true},
			},
			{
				Type:   "section",
				Fields: []slackText{{Type: "mrkdwn", Text: "*Error:*\n" + err.Error()}},
			},
			{
				Type:   "section",
				Fields: []slackText{{Type: "mrkdwn", Text: "*Time:*\n" + time.Now().Format(time.RFC822)}},
			},
		},
	}

	payload, err := request.ToJsonReq(&message)
	if err != nil {
		log.Println(err)
		return
	}

	req, err := http.NewRequest("POST", conf.Notification.Slack.WebhookUrl, payload)
	if err != nil {
		log.Println(err)
		return
	}

	var response map[string]interface{}
	_, err = request.Call(req, &response)
	if err != nil {
		log.Println(err)
	}
}

// NotifyError logs the error locally and, when a Slack webhook is
// configured, reports it there. Runs asynchronously to avoid blocking the
// caller's tick.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			log.Println(err)
			return
		}

		if conf.Notification.Slack.WebhookUrl != "" {
			SlackNotification(systemError)
		}
	}(systemError)
}
