// Package message_type_enum 定义聊天消息类型枚举
package message_type_enum

const (
	Text  int8 = 0 // 文本消息
	Image int8 = 1 // 图片消息（仅存对象存储返回的引用）
)
