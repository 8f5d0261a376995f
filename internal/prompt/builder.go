package prompt

import (
	"fmt"
	"strings"
)

// ParseTypePhotoreal identifies the only rendering type currently offered.
const ParseTypePhotoreal = "photoreal"

// baseTemplate is the non-public instruction set sent to every backend. Only
// the optional per-request custom line varies.
const baseTemplate = `添付の建築パースをフォトリアルにしてください。
建物の形状・構成・アングル・奥行・カメラ位置・パースラインは絶対に変更しないでください。
素材・質感・光の表現だけを実写に寄せてください。

【必ず守ってほしい内容】
・外観の形状を一切変えない
・窓の位置、壁のライン、屋根形状、陰影の付き方の方向はそのまま
・広角率を変えない
・縦横比（例：3:4、横長）を維持
・背景の構成を変えない（変更したい場合は指定する）

【今回のフォトリアル化条件】
・外壁は窯業系サイディングの質感を出す
・道路はアスファルトの質感を出す
・背景：住宅街
・コンクリート反射：なし
・窓ガラス反射：あり
・天候：晴れ
・人物：不要%s

【重要】
建物の形状や寸法感が変わるような解釈は絶対にしないでください。
元画像の輪郭線と構造はそのまま、質感だけを高精細フォトリアルに仕上げてください。`

// Build renders the full generation prompt, merging the user's custom
// instruction into the base template. "OK" (any case) means no custom
// instruction.
func Build(custom string) string {
	custom = strings.TrimSpace(custom)
	if strings.EqualFold(custom, "OK") {
		custom = ""
	}
	line := ""
	if custom != "" {
		line = "\n・" + custom
	}
	return fmt.Sprintf(baseTemplate, line)
}
