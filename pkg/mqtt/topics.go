package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix 默认主题前缀
const DefaultTopicPrefix = "hotel"

// Topics 客房主题
//
//	{prefix}/rooms/{number}/events        入住、退房、房态变更事件
//	{prefix}/rooms/{number}/status        当前房态（保留消息）
//	{prefix}/rooms/{number}/housekeeping  客房终端上报的清洁状态
type Topics struct {
	prefix string
}

// NewTopics 创建主题构造器
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// RoomEvents 房间事件主题
func (t Topics) RoomEvents(roomNumber string) string {
	return fmt.Sprintf("%s/rooms/%s/events", t.prefix, roomNumber)
}

// RoomStatus 房态主题
func (t Topics) RoomStatus(roomNumber string) string {
	return fmt.Sprintf("%s/rooms/%s/status", t.prefix, roomNumber)
}

// HousekeepingReports 所有房间清洁上报的订阅过滤器
func (t Topics) HousekeepingReports() string {
	return fmt.Sprintf("%s/rooms/+/housekeeping", t.prefix)
}

// RoomNumberFromTopic 从 {prefix}/rooms/{number}/xxx 中提取房间号
func RoomNumberFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "rooms" {
			return parts[i+1]
		}
	}
	return ""
}
