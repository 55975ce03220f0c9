// Package label 提供参与者匿名标识的纯函数生成
// 标识只由入会时的序号决定，与展示语言/本地化无关，由前端自行翻译
package label

import "strconv"

// For 根据入会序号生成匿名标识
// 序号在报名时一次性分配（分配规则：报名前的有效人数 + 1），此后不再变更
func For(ordinal int) string {
	if ordinal < 1 {
		ordinal = 1
	}
	return "Participant" + strconv.Itoa(ordinal)
}
