// Package meeting_purpose_enum 定义聚会目的枚举
package meeting_purpose_enum

const (
	STUDY      int8 = 0 // 学习
	HOBBY      int8 = 1 // 兴趣爱好
	EXERCISE   int8 = 2 // 运动
	NETWORKING int8 = 3 // 社交
	OTHER      int8 = 4 // 其他
)
